package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shipwright-run/shipwright/internal/history"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/spf13/cobra"
)

// openHistoryStore connects to the durable history database from
// HISTORY_DB_* environment variables (spec.md §3's durable-history
// supplement), shared by every regression subcommand.
func openHistoryStore(ctx context.Context) (*history.Store, error) {
	cfg, err := history.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load history db config: %w", err)
	}
	client, err := history.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	return history.NewStore(client), nil
}

func newRegressionCmd(gf *globalFlags) *cobra.Command {
	var repoIdentifier string
	var metricName string
	var issueID int64
	var observed float64
	var sigma float64
	var window int
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "regression",
		Short: "record, check, and report compound-quality baselines durably",
	}

	baseline := &cobra.Command{
		Use:   "baseline",
		Short: "record a new baseline sample for a repo/metric",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryStore(c.Context())
			if err != nil {
				return err
			}
			repoHash := learning.RepoHash(repoIdentifier)
			if err := store.RecordBaseline(c.Context(), repoHash, history.Metric(metricName), observed); err != nil {
				return fmt.Errorf("record baseline: %w", err)
			}
			fmt.Printf("recorded baseline: repo=%s metric=%s value=%.4f\n", repoHash, metricName, observed)
			return nil
		},
	}
	baseline.Flags().StringVar(&repoIdentifier, "repo", "", "repo identifier (owner/name or local path)")
	baseline.Flags().StringVar(&metricName, "metric", string(history.MetricPerf), "metric name (perf|bundle_size|coverage|ci_time|deploy_monitor)")
	baseline.Flags().Float64Var(&observed, "value", 0, "observed value to record")
	_ = baseline.MarkFlagRequired("repo")

	check := &cobra.Command{
		Use:   "check",
		Short: "compare an observed value against the rolling baseline and print pass/regression",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryStore(c.Context())
			if err != nil {
				return err
			}
			repoHash := learning.RepoHash(repoIdentifier)
			result, err := store.Check(c.Context(), repoHash, history.Metric(metricName), issueID, observed, sigma, window)
			if err != nil {
				return fmt.Errorf("check baseline: %w", err)
			}
			fmt.Printf("repo=%s metric=%s observed=%.4f mean=%.4f stddev=%.4f verdict=%s\n",
				repoHash, metricName, result.Observed, result.BaselineMean, result.BaselineStddev, result.Verdict)
			if result.Verdict == history.VerdictRegression {
				return shipwrighterr.New(shipwrighterr.KindQualityGateBelow, "cli.regression",
					fmt.Sprintf("%s regressed: %.4f vs baseline %.4f±%.4f", metricName, result.Observed, result.BaselineMean, result.BaselineStddev), nil)
			}
			return nil
		},
	}
	check.Flags().StringVar(&repoIdentifier, "repo", "", "repo identifier (owner/name or local path)")
	check.Flags().StringVar(&metricName, "metric", string(history.MetricPerf), "metric name")
	check.Flags().Int64Var(&issueID, "issue", 0, "issue id this check is gating")
	check.Flags().Float64Var(&observed, "value", 0, "newly observed value")
	check.Flags().Float64Var(&sigma, "sigma", 2.0, "stddev multiplier defining a regression")
	check.Flags().IntVar(&window, "window", 20, "number of recent baseline samples to average over")
	_ = check.MarkFlagRequired("repo")

	report := &cobra.Command{
		Use:   "report",
		Short: "summarize pass/regression counts per metric since a duration ago",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryStore(c.Context())
			if err != nil {
				return err
			}
			repoHash := learning.RepoHash(repoIdentifier)
			rep, err := store.Report(c.Context(), repoHash, time.Now().UTC().Add(-since))
			if err != nil {
				return fmt.Errorf("report: %w", err)
			}
			fmt.Printf("repo=%s since=%s total_checks=%d\n", repoHash, since, rep.TotalCount)
			for metric, summary := range rep.ByMetric {
				fmt.Printf("  %-15s pass=%d regression=%d last_observed=%.4f last_verdict=%s\n",
					metric, summary.PassCount, summary.RegressionCount, summary.LastObserved, summary.LastVerdict)
			}
			return nil
		},
	}
	report.Flags().StringVar(&repoIdentifier, "repo", "", "repo identifier (owner/name or local path)")
	report.Flags().DurationVar(&since, "since", 30*24*time.Hour, "how far back to summarize")
	_ = report.MarkFlagRequired("repo")

	hist := &cobra.Command{
		Use:   "history",
		Short: "list recent baseline samples and check results for a repo/metric",
		RunE: func(c *cobra.Command, args []string) error {
			store, err := openHistoryStore(c.Context())
			if err != nil {
				return err
			}
			repoHash := learning.RepoHash(repoIdentifier)
			samples, checks, err := store.History(c.Context(), repoHash, history.Metric(metricName), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			fmt.Printf("baseline samples (%d):\n", len(samples))
			for _, s := range samples {
				fmt.Printf("  %s value=%.4f\n", s.RecordedAt.Format(time.RFC3339), s.Value)
			}
			fmt.Printf("check results (%d):\n", len(checks))
			for _, c := range checks {
				fmt.Printf("  %s issue=%d observed=%.4f verdict=%s\n", c.CheckedAt.Format(time.RFC3339), c.IssueID, c.Observed, c.Verdict)
			}
			return nil
		},
	}
	hist.Flags().StringVar(&repoIdentifier, "repo", "", "repo identifier (owner/name or local path)")
	hist.Flags().StringVar(&metricName, "metric", string(history.MetricPerf), "metric name")
	hist.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")
	_ = hist.MarkFlagRequired("repo")

	cmd.AddCommand(baseline, check, report, hist)
	return cmd
}
