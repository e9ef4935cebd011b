// Package progress implements the Progress Monitor (spec.md §4.4): a
// co-resident loop that snapshots each active job's vitals every heartbeat
// interval, diffs against the last snapshot, and emits a graduated verdict
// the Supervisor acts on. Grounded on the teacher's pkg/queue/orphan.go
// periodic-scan shape (ticker loop, per-item detect-and-act, metrics kept
// under a mutex) and pkg/queue/worker.go's heartbeat-write convention,
// translated from a DB heartbeat column to a per-worktree heartbeat file
// since jobs here are isolated subprocesses, not DB-tracked goroutines.
package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
)

// Heartbeat is the small JSON file a Runner subprocess writes on its own
// cadence so the co-resident Progress Monitor can read vitals without
// touching the Runner's PipelineState file (spec.md §4.4 step 1a).
type Heartbeat struct {
	Stage     model.StageID `json:"stage"`
	Iteration int           `json:"iteration"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// HeartbeatFileName is the fixed filename written inside a job's worktree.
const HeartbeatFileName = ".shipwright-heartbeat.json"

// HeartbeatPath returns the heartbeat file path for a worktree.
func HeartbeatPath(worktree string) string {
	return filepath.Join(worktree, HeartbeatFileName)
}

// WriteHeartbeat is called by the Runner process itself, not the monitor.
func WriteHeartbeat(worktree string, hb Heartbeat) error {
	hb.UpdatedAt = hb.UpdatedAt.UTC()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	tmp := HeartbeatPath(worktree) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, HeartbeatPath(worktree))
}

// readHeartbeat reads the heartbeat file, reporting ok=false if it is
// absent or malformed so the caller can fall back to PipelineState
// (spec.md §4.4 step 1a: "falling back to the per-worktree PipelineState").
func readHeartbeat(worktree string) (Heartbeat, bool) {
	data, err := os.ReadFile(HeartbeatPath(worktree))
	if err != nil {
		return Heartbeat{}, false
	}
	var hb Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return Heartbeat{}, false
	}
	return hb, true
}

// readPipelineStateFallback reads stage/iteration straight from the job's
// PipelineState file when no heartbeat file exists yet.
func readPipelineStateFallback(worktree string) (Heartbeat, bool) {
	data, err := os.ReadFile(filepath.Join(worktree, "pipeline-state.json"))
	if err != nil {
		return Heartbeat{}, false
	}
	var ps model.PipelineState
	if err := json.Unmarshal(data, &ps); err != nil {
		return Heartbeat{}, false
	}
	return Heartbeat{
		Stage:     currentStage(ps),
		Iteration: ps.CurrentIteration,
		UpdatedAt: ps.UpdatedAt,
	}, true
}

func currentStage(ps model.PipelineState) model.StageID {
	for i := len(ps.Stages) - 1; i >= 0; i-- {
		if ps.Stages[i].Status == model.StageStatusRunning || ps.Stages[i].Status == model.StageStatusSucceeded {
			return ps.Stages[i].Stage
		}
	}
	if len(ps.Stages) > 0 {
		return ps.Stages[0].Stage
	}
	return model.StageIntake
}
