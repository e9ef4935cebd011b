package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
)

// PipelineStateFileName is the on-disk name of a job's PipelineState
// within its worktree (spec.md §6 file layout). internal/progress's
// heartbeat fallback and internal/supervisor's reap() read the same file.
const PipelineStateFileName = "pipeline-state.json"

// WritePipelineState atomically persists ps to <worktree>/pipeline-state.json
// (write-to-temp, rename), matching the state-blob's own atomic-write
// discipline (internal/statestore.writeState) so a crash mid-write never
// leaves a truncated file for a concurrent reader.
func WritePipelineState(worktree string, ps *model.PipelineState) error {
	ps.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(worktree, PipelineStateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadPipelineState reads a job's persisted state, or nil if absent or
// malformed (the Runner subprocess may not have written one yet).
func ReadPipelineState(worktree string) *model.PipelineState {
	data, err := os.ReadFile(filepath.Join(worktree, PipelineStateFileName))
	if err != nil {
		return nil
	}
	var ps model.PipelineState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil
	}
	return &ps
}
