package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Build delegates to the self-healing build→test retry loop (spec.md
// §4.3), reading the plan/design/DoD artifacts and writing commits.
// Never skipped.
type Build struct {
	MaxIterations int
}

func (Build) ID() model.StageID                  { return model.StageBuild }
func (Build) FailurePolicy() model.FailurePolicy { return model.PolicySelfHeal }

func (Build) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (b Build) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	maxIter := b.MaxIterations
	if maxIter <= 0 && rc.Template != nil && rc.Template.MaxIterations > 0 {
		maxIter = rc.Template.MaxIterations
	}
	if maxIter <= 0 {
		maxIter = 5
	}

	testCmd := "go test ./..."
	if rc.Template != nil && rc.Template.Commands.Test != "" {
		testCmd = rc.Template.Commands.Test
	}
	tests := pipeline.NewShellTestRunner(testCmd)

	prompt := buildPrompt(rc)

	iterations, err := pipeline.SelfHeal(ctx, rc.Executor, tests, rc.Worktree, prompt, maxIter)
	rc.State.CurrentIteration = iterations
	rc.State.SelfHealCount = iterations
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("build: %w", err)
	}

	return pipeline.StageResult{Notes: fmt.Sprintf("build converged after %d iteration(s)", iterations)}, nil
}

func (Build) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("build: " + res.Notes)
	return nil
}

func buildPrompt(rc *pipeline.RunContext) string {
	return fmt.Sprintf("Implement issue #%d per the plan and design below. Commit your work.\n\nPLAN:\n%s\n\nDESIGN:\n%s",
		rc.Job.IssueID, rc.State.Artifacts["plan"], rc.State.Artifacts["design"])
}
