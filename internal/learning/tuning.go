package learning

import "path/filepath"

// DaemonTuning persists the Supervisor's adapted runtime parameters
// (spec.md §4.5 step 7) so a restarted daemon resumes from its last
// learned values instead of the static config defaults. The Supervisor
// saves only the poll interval and the empty-poll streak; the heartbeat,
// stale-timeout and patrol fields are written as zero.
type DaemonTuning struct {
	path string
}

// TuningState is the adapted-parameters snapshot.
type TuningState struct {
	PollIntervalSeconds   float64 `json:"poll_interval_seconds"`
	HeartbeatTimeoutSec   float64 `json:"heartbeat_timeout_seconds"`
	StaleTimeoutSeconds   float64 `json:"stale_timeout_seconds"`
	PatrolMax             int     `json:"patrol_max"`
	ConsecutiveEmptyPolls int     `json:"consecutive_empty_polls"`
}

// NewDaemonTuning opens daemon-tuning.json rooted at homeDir.
func NewDaemonTuning(homeDir string) *DaemonTuning {
	return &DaemonTuning{path: filepath.Join(homeDir, "optimization", "daemon-tuning.json")}
}

// Load returns the persisted tuning state, or the zero value if none
// exists yet.
func (d *DaemonTuning) Load() TuningState {
	var s TuningState
	readJSON(d.path, &s)
	return s
}

// Save persists the current tuning state.
func (d *DaemonTuning) Save(s TuningState) error {
	return writeJSONAtomic(d.path, s)
}

// ComplexityActual is one append-only entry to complexity-actuals.jsonl:
// the triage-estimated complexity alongside what the pipeline actually
// observed (lines touched, files changed, cycles needed), raw material for
// a future learned classifier (spec.md §9 open question 3).
type ComplexityActual struct {
	IssueID            int64 `json:"issue_id"`
	EstimatedComplexity int  `json:"estimated_complexity"`
	ActualLinesChanged int   `json:"actual_lines_changed"`
	ActualFilesChanged int   `json:"actual_files_changed"`
	ActualCycles       int   `json:"actual_cycles"`
}

// ComplexityActuals manages complexity-actuals.jsonl.
type ComplexityActuals struct {
	path    string
	lineCap int
}

// NewComplexityActuals opens complexity-actuals.jsonl rooted at homeDir.
func NewComplexityActuals(homeDir string, lineCap int) *ComplexityActuals {
	return &ComplexityActuals{path: filepath.Join(homeDir, "optimization", "complexity-actuals.jsonl"), lineCap: lineCap}
}

// Record appends one observation.
func (c *ComplexityActuals) Record(rec ComplexityActual) error {
	return appendJSONL(c.path, rec, c.lineCap)
}
