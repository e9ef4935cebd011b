package model

import "time"

// ProgressSnapshot is one ring entry in a job's progress history
// (spec.md §3, §4.4). Cleared on completion.
type ProgressSnapshot struct {
	Stage             StageID   `json:"stage"`
	Iteration         int       `json:"iteration"`
	DiffLines         int       `json:"diff_lines"`
	FilesChanged      int       `json:"files_changed"`
	LastErrorSignature string   `json:"last_error_signature,omitempty"`
	Timestamp         time.Time `json:"ts"`
}

// Verdict is the Progress Monitor's classification of a job's health
// (spec.md Glossary).
type Verdict string

const (
	VerdictHealthy Verdict = "healthy"
	VerdictSlowing Verdict = "slowing"
	VerdictStalled Verdict = "stalled"
	VerdictStuck   Verdict = "stuck"
)
