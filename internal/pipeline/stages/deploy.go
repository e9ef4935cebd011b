package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Deploy runs the template's configured deploy command against the merged
// branch (spec.md §4.3: canary/blue-green strategies are shelled out to,
// their content out of scope here — only the hook is ours). None of the
// doc-only, hotfix or complexity skip rules covers this stage.
type Deploy struct{}

func (Deploy) ID() model.StageID                  { return model.StageDeploy }
func (Deploy) FailurePolicy() model.FailurePolicy { return model.PolicyRetry }

func (Deploy) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Deploy) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	cmd := "echo no-op deploy"
	if rc.Template != nil && rc.Template.Commands.Deploy != "" {
		cmd = rc.Template.Commands.Deploy
	}
	runner := pipeline.NewShellTestRunner(cmd)
	ok, log, err := runner.RunTests(ctx, rc.Worktree)
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("deploy: %w", err)
	}
	if !ok {
		return pipeline.StageResult{}, fmt.Errorf("deploy: command failed:\n%s", truncateLog(log, 4000))
	}
	return pipeline.StageResult{Notes: "deploy: succeeded"}, nil
}

func (Deploy) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("deploy: " + res.Notes)
	return nil
}
