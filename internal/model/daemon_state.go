package model

import "time"

// QueueEntry is one issue awaiting capacity. Priority is recorded at
// enqueue time (derived from PriorityLaneLabels) so PopQueued can implement
// FIFO-with-priority-preemption without consulting the tracker again.
type QueueEntry struct {
	IssueID  int64 `json:"issue_id"`
	Priority bool  `json:"priority"`
}

// RuntimeConfig is the subset of configuration mirrored into DaemonState so
// that readers of the blob (dashboard, CLI) see what the daemon is actually
// running with, independent of the on-disk YAML (spec.md §3).
type RuntimeConfig struct {
	PollInterval    time.Duration `json:"poll_interval"`
	MaxParallel     int           `json:"max_parallel"`
	WatchLabel      string        `json:"watch_label"`
	PriorityLaneCap int           `json:"priority_lane_cap"`
	DashboardURL    string        `json:"dashboard_url,omitempty"`
}

// DaemonState is the single persisted blob, entirely rewritten atomically on
// each update (spec.md §3). All mutation goes through internal/statestore's
// locked read-modify-write transforms; nothing else may touch this struct's
// fields directly once it has been loaded from disk.
type DaemonState struct {
	ActiveJobs         []Job           `json:"active_jobs"`
	Queued             []QueueEntry    `json:"queued"`
	PriorityLaneActive []int64         `json:"priority_lane_active"`
	Completed          []Outcome       `json:"completed"`
	RetryCounts        map[int64]int   `json:"retry_counts"`
	FailureHistory     []FailureRecord `json:"failure_history"`
	Config             RuntimeConfig   `json:"config"`
	StartedAt          time.Time       `json:"started_at"`
	LastPoll           time.Time       `json:"last_poll"`
	PID                int             `json:"pid"`
}

// NewDaemonState returns a zero-value DaemonState with its maps initialized,
// ready for first persistence.
func NewDaemonState() *DaemonState {
	return &DaemonState{
		ActiveJobs:         []Job{},
		Queued:             []QueueEntry{},
		PriorityLaneActive: []int64{},
		Completed:          []Outcome{},
		RetryCounts:        map[int64]int{},
		FailureHistory:     []FailureRecord{},
	}
}

// CompletedRingCap bounds the Completed ring (spec.md §3: "bounded ring of
// recent outcomes").
const CompletedRingCap = 200

// FailureHistoryRingCap bounds FailureHistory similarly.
const FailureHistoryRingCap = 200

// AppendCompleted appends an outcome, trimming the ring to CompletedRingCap.
func (d *DaemonState) AppendCompleted(o Outcome) {
	d.Completed = append(d.Completed, o)
	if len(d.Completed) > CompletedRingCap {
		d.Completed = d.Completed[len(d.Completed)-CompletedRingCap:]
	}
}

// AppendFailure appends a failure record, trimming to FailureHistoryRingCap.
func (d *DaemonState) AppendFailure(f FailureRecord) {
	d.FailureHistory = append(d.FailureHistory, f)
	if len(d.FailureHistory) > FailureHistoryRingCap {
		d.FailureHistory = d.FailureHistory[len(d.FailureHistory)-FailureHistoryRingCap:]
	}
}

// IndexOfActive returns the index of issueID within ActiveJobs, or -1.
func (d *DaemonState) IndexOfActive(issueID int64) int {
	for i, j := range d.ActiveJobs {
		if j.IssueID == issueID {
			return i
		}
	}
	return -1
}

// IsQueued reports whether issueID is present in Queued.
func (d *DaemonState) IsQueued(issueID int64) bool {
	for _, e := range d.Queued {
		if e.IssueID == issueID {
			return true
		}
	}
	return false
}

// IsActive reports whether issueID is present in ActiveJobs.
func (d *DaemonState) IsActive(issueID int64) bool {
	return d.IndexOfActive(issueID) >= 0
}

// IsPriorityActive reports whether issueID currently holds a priority-lane
// slot.
func (d *DaemonState) IsPriorityActive(issueID int64) bool {
	for _, id := range d.PriorityLaneActive {
		if id == issueID {
			return true
		}
	}
	return false
}
