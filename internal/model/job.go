package model

import "time"

// JobStatus is the Job lifecycle state (spec.md §3).
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobAdmitted  JobStatus = "admitted"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobAborted   JobStatus = "aborted"
)

// Job is the internal unit of work per admitted issue. Owned by the State
// Store; mutated only through its locked accessors.
type Job struct {
	IssueID    int64     `json:"issue_id"`
	PID        int       `json:"pid"`
	Worktree   string    `json:"worktree"`
	Template   string    `json:"template"`
	Score      int       `json:"score"`
	StartedAt  time.Time `json:"started_at"`
	Stage      StageID   `json:"stage"`
	Iteration  int       `json:"iteration"`
	Complexity int       `json:"complexity"`
	Status     JobStatus `json:"status"`
	Priority   bool      `json:"priority"`
}

// Outcome is a terminal record appended to DaemonState.Completed.
type Outcome struct {
	IssueID     int64         `json:"issue_id"`
	Template    string        `json:"template"`
	Status      JobStatus     `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Duration    time.Duration `json:"duration"`
	QualityScore int          `json:"quality_score,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
}

// FailureRecord is a bounded-ring entry recording a failure signature, used
// by retry/backoff and by memory-signal scoring in Triage.
type FailureRecord struct {
	IssueID   int64     `json:"issue_id"`
	Signature string    `json:"signature"`
	Timestamp time.Time `json:"ts"`
}
