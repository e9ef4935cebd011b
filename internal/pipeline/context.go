// Package pipeline drives one admitted job through its fixed stage
// sequence (spec.md §4.3). Grounded on the teacher's
// pkg/agent/orchestrator/runner.go lifecycle-management shape (resolved
// config → execution context → record result), adapted from the
// orchestrator's concurrent sub-agent dispatch to a strictly sequential,
// single-stage-at-a-time driver, since within one job stages must execute
// in order (spec.md §5: "a stage observes all artifacts of prior stages").
package pipeline

import (
	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/tracker"
	"github.com/shipwright-run/shipwright/internal/vcs"
)

// EventSink appends one structured entry to the external event log
// (spec.md §6 "Event-log schema"). statestore.Store.EmitEvent satisfies
// this directly; stage code never depends on the store package itself.
type EventSink interface {
	EmitEvent(eventType string, fields map[string]any) error
}

// RunContext bundles everything a stage needs to prepare/execute/record
// itself, plus the mutable PipelineState every stage reads and appends to.
type RunContext struct {
	Job      *model.Job
	Issue    model.Issue
	Template *config.TemplateConfig
	Worktree string

	State *model.PipelineState

	Executor executor.Executor
	Tracker  tracker.Tracker
	VCS      vcs.Client
	Events   EventSink

	Durations  *learning.DurationTable
	Stages     *learning.DurationTable
	Quality    *learning.QualityScores
	Iterations *learning.IterationModel
	Baselines  *learning.BaselineTables

	BudgetExhausted func() bool
}

// EmitEvent appends a stage-level event if an event sink is wired
// (spec.md §6; §4.3/§4.2's plan.validated, intelligence.backtrack,
// compound.plateau, pipeline.quality_gate_failed, pipeline.completed).
// A nil Events (e.g. a RunContext built directly in a stage test) makes
// this a no-op rather than a nil-pointer panic.
func (rc *RunContext) EmitEvent(eventType string, fields map[string]any) {
	if rc == nil || rc.Events == nil {
		return
	}
	_ = rc.Events.EmitEvent(eventType, fields)
}

// StageResult is what a stage's Execute returns to Record.
type StageResult struct {
	Notes   string
	Skipped bool
}
