package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/shipwright-run/shipwright/internal/model"
)

// pipelineStateFileName matches the Runner's own on-disk convention
// (internal/progress reads the same file as its heartbeat fallback).
const pipelineStateFileName = "pipeline-state.json"

// readPipelineState reads the job's PipelineState file, or nil if it is
// absent or malformed (the Runner subprocess may have exited before ever
// writing one).
func readPipelineState(worktree string) *model.PipelineState {
	if worktree == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(worktree, pipelineStateFileName))
	if err != nil {
		return nil
	}
	var ps model.PipelineState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil
	}
	return &ps
}
