package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Design produces an architecture-decision record with explicit
// alternatives, reading the plan and architecture context (spec.md §4.3).
// Pure w.r.t. prior artifacts: re-running it with the same plan produces
// an equivalent record, so its failure policy is a bounded retry rather
// than fail-fast.
type Design struct{}

func (Design) ID() model.StageID                  { return model.StageDesign }
func (Design) FailurePolicy() model.FailurePolicy { return model.PolicyRetry }

func (Design) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Design) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	plan := rc.State.Artifacts["plan"]
	prompt := fmt.Sprintf("Write an architecture-decision record for issue #%d, reading the plan below. "+
		"Include at least one alternative considered and why it was rejected.\n\nPLAN:\n%s", rc.Job.IssueID, plan)

	res, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: rc.Worktree})
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("design: invoke executor: %w", err)
	}
	if err := validatePlanOutput(res.Stdout); err != nil {
		return pipeline.StageResult{}, fmt.Errorf("design: %w", err)
	}

	rc.State.Artifacts = setArtifact(rc.State, "design", res.Stdout)
	return pipeline.StageResult{Notes: "design record written"}, nil
}

func (Design) Record(_ context.Context, _ *pipeline.RunContext, _ pipeline.StageResult) error { return nil }
