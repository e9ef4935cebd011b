package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline/quality"
	"github.com/shipwright-run/shipwright/internal/progress"
)

// Runner drives one job through model.Stages in order. Grounded on
// pkg/agent/orchestrator/runner.go's lifecycle shape (resolve, execute,
// record, report), narrowed from concurrent sub-agent dispatch to a
// strictly sequential per-stage loop.
type Runner struct {
	Registry   Registry
	Thresholds SkipThresholds
	logger     *slog.Logger
}

// persist writes rc.State to its worktree after every stage transition, so
// a concurrently-reaping Supervisor or Progress Monitor always sees the
// pipeline's latest recorded stage (spec.md §3: PipelineState "persisted
// in the job's worktree"). Best-effort: a write failure is logged, never
// fatal to the run.
func (r *Runner) persist(rc *RunContext) {
	if rc.Worktree == "" {
		return
	}
	if err := WritePipelineState(rc.Worktree, rc.State); err != nil {
		r.logger.Warn("pipeline state persist failed", "issue_id", rc.Job.IssueID, "error", err)
	}
}

// SkipThresholds carries the issue/template classification the skip
// decision needs, computed once per job before the stage loop starts.
type SkipThresholds struct {
	IsDocOnly  bool
	IsHotfix   bool
	Complexity int
}

// NewRunner constructs a Runner over the given stage registry.
func NewRunner(reg Registry, th SkipThresholds) *Runner {
	return &Runner{Registry: reg, Thresholds: th, logger: slog.With("component", "pipeline")}
}

// outcome is the Run loop's terminal result.
type outcome struct {
	status model.JobStatus
	reason string
}

// Run drives rc.State through the full stage sequence, honoring skip
// decisions and per-stage failure policy, until a terminal stage completes
// or a fail-fast/backtrack-exhausted error stops the run.
func (r *Runner) Run(ctx context.Context, rc *RunContext) (model.JobStatus, string, error) {
	idx := 0
	backtracksUsed := 0

	for idx < len(model.Stages) {
		stage := model.Stages[idx]
		impl, ok := r.Registry[stage]
		if !ok {
			return model.JobFailed, fmt.Sprintf("no implementation registered for stage %s", stage), nil
		}

		skip, reason := ShouldSkip(SkipInput{
			Stage:            stage,
			IsDocOnly:        r.Thresholds.IsDocOnly,
			IsHotfix:         r.Thresholds.IsHotfix,
			Complexity:       r.Thresholds.Complexity,
			PostBuildDiffLOC: postBuildDiffLOC(rc),
			HasRunBuild:      stageSucceeded(rc.State, model.StageBuild),
		})
		if skip {
			r.markSkipped(rc, stage, reason)
			r.persist(rc)
			idx++
			continue
		}

		if err := r.writeHeartbeat(rc, stage); err != nil {
			r.logger.Warn("heartbeat write failed", "issue_id", rc.Job.IssueID, "error", err)
		}

		if _, err := r.runStage(ctx, impl, rc); err != nil {
			r.persist(rc)
			o, outErr := r.handleFailure(ctx, impl, rc, err, &backtracksUsed, &idx)
			if outErr != nil {
				return model.JobFailed, outErr.Error(), outErr
			}
			if o != nil {
				return o.status, o.reason, nil
			}
			continue
		}
		r.persist(rc)
		idx++
	}

	return model.JobSucceeded, "", nil
}

func (r *Runner) runStage(ctx context.Context, impl Stage, rc *RunContext) (model.StageStatus, error) {
	rec := rc.State.StageByID(impl.ID())
	rec.Status = model.StageStatusRunning
	rec.StartedAt = time.Now().UTC()

	if err := impl.Prepare(ctx, rc); err != nil {
		rec.Status = model.StageStatusFailed
		rec.FinishedAt = time.Now().UTC()
		return model.StageStatusFailed, fmt.Errorf("prepare %s: %w", impl.ID(), err)
	}

	res, err := impl.Execute(ctx, rc)
	rec.FinishedAt = time.Now().UTC()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)

	if err != nil {
		rec.Status = model.StageStatusFailed
		return model.StageStatusFailed, fmt.Errorf("execute %s: %w", impl.ID(), err)
	}

	rec.Status = model.StageStatusSucceeded
	rec.Notes = res.Notes

	if recErr := impl.Record(ctx, rc, res); recErr != nil {
		r.logger.Warn("stage record failed", "stage", impl.ID(), "error", recErr)
	}

	return model.StageStatusSucceeded, nil
}

// handleFailure applies the failing stage's declared recovery policy
// (spec.md §4.3). Returns a non-nil *outcome when the run should stop
// immediately, or advances/rewinds idx and returns (nil, nil) to continue.
func (r *Runner) handleFailure(ctx context.Context, impl Stage, rc *RunContext, stageErr error, backtracksUsed *int, idx *int) (*outcome, error) {
	policy := impl.FailurePolicy()

	switch policy {
	case model.PolicyBacktrack:
		if !quality.CanBacktrack(*backtracksUsed) {
			rc.EmitEvent("intelligence.backtrack_blocked", map[string]any{
				"issue_id": rc.Job.IssueID, "reason": "max_backtracks_reached", "used": *backtracksUsed,
			})
			if rc.Tracker != nil {
				_ = rc.Tracker.Comment(ctx, rc.Job.IssueID, fmt.Sprintf(
					"shipwright: backtrack budget exhausted after %d attempts (%s)", *backtracksUsed, stageErr.Error()))
			}
			return &outcome{status: model.JobFailed, reason: "backtrack budget exhausted: " + stageErr.Error()}, nil
		}
		*backtracksUsed++
		rc.State.BacktrackCount = *backtracksUsed
		rc.EmitEvent("intelligence.backtrack", map[string]any{
			"issue_id": rc.Job.IssueID, "target": string(model.StageDesign), "attempt": *backtracksUsed,
		})
		*idx = model.Index(model.StageDesign)
		return nil, nil

	case model.PolicySkip:
		r.markSkipped(rc, impl.ID(), "failure policy: skip ("+stageErr.Error()+")")
		*idx++
		return nil, nil

	case model.PolicyRetry, model.PolicySelfHeal:
		// Self-heal and bounded retry are implemented inside each stage's
		// Execute (pipeline.SelfHeal); reaching here means the stage already
		// exhausted its own retries, so this run fails.
		return &outcome{status: model.JobFailed, reason: stageErr.Error()}, nil

	default: // model.PolicyFailFast and any unrecognized policy
		return &outcome{status: model.JobFailed, reason: stageErr.Error()}, nil
	}
}

func (r *Runner) markSkipped(rc *RunContext, stage model.StageID, reason string) {
	rec := rc.State.StageByID(stage)
	rec.Status = model.StageStatusSkipped
	rec.Notes = reason
}

func (r *Runner) writeHeartbeat(rc *RunContext, stage model.StageID) error {
	return progress.WriteHeartbeat(rc.Worktree, progress.Heartbeat{
		Stage:     stage,
		Iteration: rc.State.CurrentIteration,
	})
}

func stageSucceeded(ps *model.PipelineState, id model.StageID) bool {
	for _, s := range ps.Stages {
		if s.Stage == id {
			return s.Status == model.StageStatusSucceeded
		}
	}
	return false
}

func postBuildDiffLOC(rc *RunContext) int {
	if rc.VCS == nil {
		return 0
	}
	stats, err := rc.VCS.WorkingTreeStats(context.Background())
	if err != nil {
		return 0
	}
	return stats.Total()
}
