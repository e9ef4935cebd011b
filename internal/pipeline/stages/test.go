package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Test runs the template's configured test command once more over the
// built changes, extracting a coverage figure into the "coverage" artifact
// and the learning tables' coverage baseline (spec.md §4.3: "runs configured test
// command; extracts coverage ... emits test.completed with coverage").
// Self-heal already drove build/test to green inside Build; this stage is
// the authoritative post-build measurement, never skipped.
type Test struct{}

func (Test) ID() model.StageID                  { return model.StageTest }
func (Test) FailurePolicy() model.FailurePolicy { return model.PolicyRetry }

func (Test) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Test) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	testCmd := "go test ./..."
	if rc.Template != nil && rc.Template.Commands.Test != "" {
		testCmd = rc.Template.Commands.Test
	}
	runner := pipeline.NewShellTestRunner(testCmd)

	passed, log, err := runner.RunTests(ctx, rc.Worktree)
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("test: %w", err)
	}
	if !passed {
		return pipeline.StageResult{}, fmt.Errorf("test: command failed:\n%s", truncateLog(log, 4000))
	}

	rc.State.Artifacts = ensureArtifacts(rc.State)
	cov, ok := ParseCoverageWithFallback(ctx, rc.Executor, rc.Worktree, log)
	notes := "test.completed: all tests passing"
	if ok {
		rc.State.Artifacts["coverage"] = fmt.Sprintf("%.2f", cov)
		notes = fmt.Sprintf("test.completed: coverage=%.2f%%", cov)
		if rc.Baselines != nil {
			_ = rc.Baselines.RecordCoverage(cov)
		}
	}
	rc.EmitEvent("test.completed", map[string]any{
		"issue_id": rc.Job.IssueID, "coverage": rc.State.Artifacts["coverage"],
	})

	return pipeline.StageResult{Notes: notes}, nil
}

func (Test) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("test: " + res.Notes)
	return nil
}

func truncateLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
