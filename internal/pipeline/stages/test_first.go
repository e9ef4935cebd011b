package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// TestFirst asks the executor to write failing tests from the design
// artifact before any implementation exists (spec.md §4.3: "optional
// stage"). Always eligible for the ordinary skip rules; when it does run
// a red test run is the expected, successful outcome, so this stage
// never fails the pipeline on its own — Build drives tests to green.
type TestFirst struct{}

func (TestFirst) ID() model.StageID                  { return model.StageTestFirst }
func (TestFirst) FailurePolicy() model.FailurePolicy { return model.PolicySkip }

func (TestFirst) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (TestFirst) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	if rc.Template == nil || !rc.Template.EnableTestFirst {
		return pipeline.StageResult{Skipped: true, Notes: "test_first: disabled by template"}, nil
	}

	prompt := fmt.Sprintf(
		"Write failing tests for issue #%d that encode the design's acceptance criteria below. "+
			"Do not implement the feature itself, only the tests. Commit your work.\n\nPLAN:\n%s\n\nDESIGN:\n%s",
		rc.Job.IssueID, rc.State.Artifacts["plan"], rc.State.Artifacts["design"])

	_, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: rc.Worktree})
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("test_first: %w", err)
	}

	return pipeline.StageResult{Notes: "test_first: failing tests committed"}, nil
}

func (TestFirst) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("test_first: " + res.Notes)
	return nil
}
