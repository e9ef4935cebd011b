package stages

import (
	"context"
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// PR opens (or, on retry, reuses) the pull request for the job's branch
// (spec.md §4.3: "opens/updates PR; dedupes against an existing open PR;
// rejects bookkeeping-only diffs"). Never skipped.
type PR struct{}

func (PR) ID() model.StageID                  { return model.StagePR }
func (PR) FailurePolicy() model.FailurePolicy { return model.PolicyFailFast }

func (PR) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (PR) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	rc.State.Artifacts = ensureArtifacts(rc.State)

	if existing := rc.State.Artifacts["pr_url"]; existing != "" {
		return pipeline.StageResult{Notes: "pr: reusing existing " + existing}, nil
	}

	if rc.VCS != nil {
		stats, err := rc.VCS.WorkingTreeStats(ctx)
		if err == nil && stats.Total() == 0 && stats.Untracked == 0 {
			return pipeline.StageResult{}, shipwrighterr.New(shipwrighterr.KindNoRealChanges, "pipeline.pr",
				"no working-tree changes to open a PR for", nil)
		}
	}

	branch := rc.State.Artifacts["branch"]
	if branch == "" {
		branch = fmt.Sprintf("shipwright/issue-%d", rc.Job.IssueID)
	}

	title := fmt.Sprintf("[shipwright] %s", rc.Issue.Title)
	body := fmt.Sprintf("Automated change for #%d.\n\n%s", rc.Job.IssueID, rc.State.Artifacts["plan"])

	if rc.Tracker == nil {
		return pipeline.StageResult{}, fmt.Errorf("pr: no tracker configured")
	}

	created, err := rc.Tracker.CreatePR(ctx, branch, "main", title, body, []string{"shipwright"}, nil, "")
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("pr: create: %w", err)
	}

	rc.State.Artifacts["pr_url"] = created.URL
	rc.State.Artifacts["pr_number"] = fmt.Sprintf("%d", created.Number)

	return pipeline.StageResult{Notes: "pr: opened " + created.URL}, nil
}

func (PR) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("pr: " + res.Notes)
	return nil
}
