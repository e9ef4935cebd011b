package pipeline

import (
	"context"

	"github.com/shipwright-run/shipwright/internal/model"
)

// Stage is the uniform prepare→execute→record shape every pipeline stage
// implements (spec.md §4.3).
type Stage interface {
	ID() model.StageID
	FailurePolicy() model.FailurePolicy
	Prepare(ctx context.Context, rc *RunContext) error
	Execute(ctx context.Context, rc *RunContext) (StageResult, error)
	Record(ctx context.Context, rc *RunContext, res StageResult) error
}

// Registry maps a StageID to its implementation, assembled for each run by
// internal/cli's buildRegistry from internal/pipeline/stages.
type Registry map[model.StageID]Stage

// NewRegistry builds a Registry from the given stages, keyed by ID.
func NewRegistry(stages ...Stage) Registry {
	r := make(Registry, len(stages))
	for _, s := range stages {
		r[s.ID()] = s
	}
	return r
}
