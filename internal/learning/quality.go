package learning

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// QualityScoreRecord is one append-only entry to quality-scores.jsonl
// (spec.md §3): "per-run {score, critical, major, minor, template,
// audits_run}".
type QualityScoreRecord struct {
	TS          time.Time `json:"ts"`
	IssueID     int64     `json:"issue_id"`
	Template    string    `json:"template"`
	Score       int       `json:"score"`
	Critical    int       `json:"critical"`
	Major       int       `json:"major"`
	Minor       int       `json:"minor"`
	AuditsRun   []string  `json:"audits_run"`
	DoDPassRate float64   `json:"dod_pass_rate"`
}

// QualityScores manages quality-scores.jsonl (raw log) plus the derived
// template-weights.json summary (spec.md §4.2 step 6: "learned template
// weights").
type QualityScores struct {
	jsonlPath  string
	weightPath string
	lineCap    int
}

// NewQualityScores opens the quality-scores table rooted at homeDir.
func NewQualityScores(homeDir string, lineCap int) *QualityScores {
	return &QualityScores{
		jsonlPath:  filepath.Join(homeDir, "optimization", "quality-scores.jsonl"),
		weightPath: filepath.Join(homeDir, "optimization", "template-weights.json"),
		lineCap:    lineCap,
	}
}

// Record appends rec and updates the rolling per-template success-rate
// weight used by the template-selection waterfall.
func (q *QualityScores) Record(rec QualityScoreRecord, success bool, threshold int) error {
	if err := appendJSONL(q.jsonlPath, rec, q.lineCap); err != nil {
		return err
	}
	return q.updateWeight(rec.Template, success)
}

type templateWeight struct {
	Successes  int `json:"successes"`
	SampleSize int `json:"sample_size"`
}

func (q *QualityScores) updateWeight(template string, success bool) error {
	weights := make(map[string]templateWeight)
	readJSON(q.weightPath, &weights)

	w := weights[template]
	w.SampleSize++
	if success {
		w.Successes++
	}
	weights[template] = w

	return writeJSONAtomic(q.weightPath, weights)
}

// Weights returns the current {sample_size, success_rate} per template, or
// an empty map if the summary is missing/malformed (safe fallback).
func (q *QualityScores) Weights() map[string]TemplateWeightEntry {
	weights := make(map[string]templateWeight)
	if !readJSON(q.weightPath, &weights) {
		return map[string]TemplateWeightEntry{}
	}
	out := make(map[string]TemplateWeightEntry, len(weights))
	for name, w := range weights {
		rate := 0.0
		if w.SampleSize > 0 {
			rate = float64(w.Successes) / float64(w.SampleSize)
		}
		out[name] = TemplateWeightEntry{SampleSize: w.SampleSize, SuccessRate: rate}
	}
	return out
}

// TemplateWeightEntry mirrors internal/triage.TemplateWeight, kept as a
// separate type here to avoid an import cycle (triage depends on nothing
// in learning; the Supervisor bridges the two).
type TemplateWeightEntry struct {
	SampleSize  int
	SuccessRate float64
}

// RecentAverage computes the average score and critical-finding presence
// over the last n records for template, used for the quality-memory
// template-selection rule (spec.md §4.2 step 5).
func (q *QualityScores) RecentAverage(template string, n int) (avg float64, recentCritical bool, hasData bool) {
	var all []QualityScoreRecord
	_ = readJSONLAll(q.jsonlPath, func(line []byte) bool {
		var r QualityScoreRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return false
		}
		if r.Template == template {
			all = append(all, r)
		}
		return true
	})
	if len(all) == 0 {
		return 0, false, false
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	sum := 0
	for _, r := range all {
		sum += r.Score
		if r.Critical > 0 {
			recentCritical = true
		}
	}
	return float64(sum) / float64(len(all)), recentCritical, true
}
