package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
	"github.com/shipwright-run/shipwright/internal/pipeline/stages"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/shipwright-run/shipwright/internal/vcs"
	"github.com/spf13/cobra"
)

func newPipelineCmd(gf *globalFlags) *cobra.Command {
	var issueID int64
	var templateName string
	var worktree string
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "run or inspect a job's pipeline",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "run the full stage sequence for one issue in the foreground",
		RunE: func(c *cobra.Command, args []string) error {
			a, err := newApp(c.Context(), *gf)
			if err != nil {
				return err
			}
			issue, err := a.tr.GetIssue(c.Context(), issueID)
			if err != nil {
				return fmt.Errorf("fetch issue %d: %w", issueID, err)
			}
			tmpl, ok := a.cfg.Templates.Get(templateName)
			if !ok {
				return shipwrighterr.New(shipwrighterr.KindValidation, "cli.pipeline", fmt.Sprintf("unknown template %q", templateName), nil)
			}
			if worktree == "" {
				worktree = filepath.Join(a.homeDir, "worktrees", fmt.Sprintf("%d", issueID))
			}
			status, reason, err := runPipeline(c.Context(), a, issue, tmpl, worktree, maxIterations)
			fmt.Printf("status=%s reason=%q\n", status, reason)
			return err
		},
	}
	start.Flags().Int64Var(&issueID, "issue", 0, "issue id to run")
	start.Flags().StringVar(&templateName, "template", "standard", "pipeline template name")
	start.Flags().StringVar(&worktree, "worktree", "", "worktree directory (defaults under --home/worktrees/<issue>)")
	start.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the template's build/test iteration cap (0 = template default)")
	_ = start.MarkFlagRequired("issue")

	cmd.AddCommand(start)
	return cmd
}

// buildRegistry assembles the fixed stage registry (spec.md §4.3's
// thirteen stages), honoring the template's merge-poll-interval and
// build-iteration-cap knobs.
func buildRegistry(tmpl *config.TemplateConfig, maxIterations int) pipeline.Registry {
	iter := maxIterations
	if iter <= 0 {
		iter = tmpl.MaxIterations
	}
	return pipeline.NewRegistry(
		stages.Intake{},
		stages.Plan{},
		stages.Design{},
		stages.TestFirst{},
		stages.Build{MaxIterations: iter},
		stages.Test{},
		stages.Review{},
		stages.CompoundQuality{},
		stages.PR{},
		stages.Merge{PollInterval: 30 * time.Second},
		stages.Deploy{},
		stages.Validate{},
		stages.Monitor{},
	)
}

// runPipeline constructs a RunContext and drives it through the Runner.
// Shared by `pipeline start` and the hidden __run-job subcommand
// supervisor.SelfExecLauncher re-execs into, since both need the exact
// same collaborator wiring (spec.md §4.3, §4.5 step 5).
func runPipeline(ctx context.Context, a *app, issue model.Issue, tmpl *config.TemplateConfig, worktree string, maxIterations int) (model.JobStatus, string, error) {
	repoHash := learning.RepoHash(worktree)
	state := pipeline.ReadPipelineState(worktree)
	if state == nil {
		state = &model.PipelineState{
			IssueID:  issue.ID,
			Template: tmpl.Name,
			Stages:   []model.StageRecord{},
			Log:      []string{},
		}
	}

	job := &model.Job{
		IssueID:   issue.ID,
		Template:  tmpl.Name,
		Worktree:  worktree,
		Stage:     model.StageIntake,
		Status:    model.JobRunning,
		StartedAt: time.Now().UTC(),
	}

	rc := &pipeline.RunContext{
		Job:      job,
		Issue:    issue,
		Template: tmpl,
		Worktree: worktree,
		State:    state,
		Executor: a.exec,
		Tracker:  a.tr,
		VCS:      vcs.NewGitClient(worktree),

		Events: a.store,

		Durations:  a.pipeline,
		Stages:     a.stages,
		Quality:    a.quality,
		Iterations: a.iter,
		Baselines:  learning.NewBaselineTables(a.homeDir, repoHash),

		BudgetExhausted: func() bool { return false },
	}

	th := pipeline.SkipThresholds{
		IsDocOnly:  issue.HasLabel("documentation"),
		IsHotfix:   tmpl.Name == "hotfix",
		Complexity: job.Complexity,
	}
	registry := buildRegistry(tmpl, maxIterations)
	runner := pipeline.NewRunner(registry, th)

	status, reason, err := runner.Run(ctx, rc)
	result := "failure"
	if status == model.JobSucceeded {
		result = "success"
	}
	rc.EmitEvent("pipeline.completed", map[string]any{
		"issue_id": issue.ID, "template": tmpl.Name, "result": result, "reason": reason,
	})
	return status, reason, err
}
