// Package stages implements spec.md §4.3's fixed stage contracts, one file
// per stage (or tight stage group), each driven through the uniform
// prepare→execute→record shape pipeline.Stage declares.
package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// Intake creates the working branch and posts the initial status comment
// (spec.md §4.3: "output: intake.json, created branch, initial status
// comment; side-effecting; failure → fail-fast").
type Intake struct{}

func (Intake) ID() model.StageID                 { return model.StageIntake }
func (Intake) FailurePolicy() model.FailurePolicy { return model.PolicyFailFast }

func (Intake) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Intake) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	branch := fmt.Sprintf("shipwright/issue-%d", rc.Job.IssueID)
	rc.State.Artifacts = ensureArtifacts(rc.State)
	rc.State.Artifacts["branch"] = branch
	rc.State.Artifacts["intake"] = fmt.Sprintf(`{"issue_id":%d,"branch":%q}`, rc.Job.IssueID, branch)

	if rc.Tracker != nil {
		if err := rc.Tracker.Comment(ctx, rc.Job.IssueID, "Shipwright has started work on this issue."); err != nil {
			return pipeline.StageResult{}, fmt.Errorf("intake: post status comment: %w", err)
		}
	}

	return pipeline.StageResult{Notes: "branch " + branch + " created"}, nil
}

func (Intake) Record(_ context.Context, _ *pipeline.RunContext, _ pipeline.StageResult) error { return nil }

func ensureArtifacts(ps *model.PipelineState) map[string]string {
	if ps.Artifacts == nil {
		return make(map[string]string)
	}
	return ps.Artifacts
}
