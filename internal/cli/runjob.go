package cli

import (
	"fmt"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/spf13/cobra"
)

// newRunJobCmd registers the hidden __run-job subcommand
// supervisor.SelfExecLauncher re-execs the binary into (spec.md §5: "each
// admitted job is an isolated subprocess"). Hidden from --help output, since
// no end user invokes it directly; the daemon is the only caller.
func newRunJobCmd(gf *globalFlags) *cobra.Command {
	var issueID int64
	var templateName string
	var worktree string

	cmd := &cobra.Command{
		Use:    "__run-job",
		Short:  "internal: run one job's pipeline to completion (invoked by the daemon, not by operators)",
		Hidden: true,
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
				return shipwrighterr.New(shipwrighterr.KindValidation, "cli.runjob", fmt.Sprintf("unknown template %q", templateName), nil)
			}

			status, reason, err := runPipeline(c.Context(), a, issue, tmpl, worktree, 0)
			if err != nil {
				return err
			}
			if status != model.JobSucceeded {
				return shipwrighterr.New(shipwrighterr.KindExecutorOutput, "cli.runjob", reason, nil)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&issueID, "issue", 0, "issue id")
	cmd.Flags().StringVar(&templateName, "template", "standard", "pipeline template name")
	cmd.Flags().StringVar(&worktree, "worktree", "", "job worktree directory")
	_ = cmd.MarkFlagRequired("issue")
	_ = cmd.MarkFlagRequired("worktree")

	return cmd
}
