package cli

import (
	"fmt"
	"time"

	"github.com/shipwright-run/shipwright/internal/triage"
	"github.com/spf13/cobra"
)

func newTriageCmd(gf *globalFlags) *cobra.Command {
	var issueID int64

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "inspect triage scoring",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "triage one issue and print its score, template, and complexity",
		RunE: func(c *cobra.Command, args []string) error {
			a, err := newApp(c.Context(), *gf)
			if err != nil {
				return err
			}
			issue, err := a.tr.GetIssue(c.Context(), issueID)
			if err != nil {
				return fmt.Errorf("fetch issue %d: %w", issueID, err)
			}

			weights := map[string]triage.TemplateWeight{}
			quality := triage.QualityMemory{}
			if a.quality != nil && a.cfg.System != nil {
				if avg, critical, ok := a.quality.RecentAverage(a.cfg.System.WatchLabel, 10); ok {
					quality = triage.QualityMemory{AverageScore: avg, RecentCritical: critical, HasData: true}
				}
				for name, w := range a.quality.Weights() {
					weights[name] = triage.TemplateWeight{SampleSize: w.SampleSize, SuccessRate: w.SuccessRate}
				}
			}

			result, err := a.triage.Triage(c.Context(), triage.TriageInput{
				Issue: issue, Now: time.Now().UTC(), Quality: quality, Weights: weights,
			})
			if err != nil {
				return fmt.Errorf("triage issue %d: %w", issueID, err)
			}

			fmt.Printf("issue:       %d\n", issueID)
			fmt.Printf("score:       %d\n", result.Score)
			fmt.Printf("template:    %s\n", result.Template)
			fmt.Printf("complexity:  %d\n", result.Complexity)
			fmt.Printf("rule:        %s\n", result.Rule)
			fmt.Printf("breakdown:   %+v\n", result.Breakdown)
			return nil
		},
	}
	show.Flags().Int64Var(&issueID, "issue", 0, "issue id to triage")
	_ = show.MarkFlagRequired("issue")

	cmd.AddCommand(show)
	return cmd
}
