package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Validate runs the template's configured post-deploy smoke/health check
// command (spec.md §4.3). A failure here escalates as a deploy failure
// (fail-fast), since there is no earlier stage left to retry into.
type Validate struct{}

func (Validate) ID() model.StageID                  { return model.StageValidate }
func (Validate) FailurePolicy() model.FailurePolicy { return model.PolicyFailFast }

func (Validate) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Validate) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	cmd := "echo no-op validate"
	if rc.Template != nil && rc.Template.Commands.Validate != "" {
		cmd = rc.Template.Commands.Validate
	}
	runner := pipeline.NewShellTestRunner(cmd)
	ok, log, err := runner.RunTests(ctx, rc.Worktree)
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("validate: %w", err)
	}
	if !ok {
		return pipeline.StageResult{}, fmt.Errorf("validate: health check failed:\n%s", truncateLog(log, 4000))
	}
	return pipeline.StageResult{Notes: "validate: health checks passed"}, nil
}

func (Validate) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("validate: " + res.Notes)
	return nil
}
