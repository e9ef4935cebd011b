package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
	"github.com/shipwright-run/shipwright/internal/tracker"
)

// Merge enforces branch protection, waits out CI with an adaptive timeout,
// and merges by the template's configured strategy (spec.md §4.3). Never
// skipped.
type Merge struct {
	PollInterval time.Duration
}

func (Merge) ID() model.StageID                  { return model.StageMerge }
func (Merge) FailurePolicy() model.FailurePolicy { return model.PolicyFailFast }

func (Merge) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (m Merge) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	prNumber := rc.State.Artifacts["pr_number"]
	if prNumber == "" {
		return pipeline.StageResult{}, fmt.Errorf("merge: no pr_number recorded by the pr stage")
	}
	var prID int64
	if _, err := fmt.Sscanf(prNumber, "%d", &prID); err != nil {
		return pipeline.StageResult{}, fmt.Errorf("merge: invalid pr_number %q: %w", prNumber, err)
	}

	if rc.Tracker != nil {
		bp, err := rc.Tracker.BranchProtection(ctx, "", "main")
		if err == nil && bp.RequiredReviews > 0 {
			return pipeline.StageResult{}, fmt.Errorf(
				"merge: branch protection requires %d review(s); shipwright does not self-approve", bp.RequiredReviews)
		}
	}

	timeout := adaptiveCIWaitTimeout(rc)
	poll := m.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}

	start := time.Now()
	branch := rc.State.Artifacts["branch"]
	if err := waitForChecks(ctx, rc, branch, timeout, poll); err != nil {
		return pipeline.StageResult{}, fmt.Errorf("merge: %w", err)
	}
	ciDuration := time.Since(start)
	if rc.Baselines != nil {
		_ = rc.Baselines.RecordCITime(ciDuration.Seconds())
	}

	strategy := "squash"
	if rc.Template != nil && rc.Template.MergeStrategy != "" {
		strategy = rc.Template.MergeStrategy
	}

	if rc.Tracker == nil {
		return pipeline.StageResult{}, fmt.Errorf("merge: no tracker configured")
	}
	if err := rc.Tracker.MergePR(ctx, prID, strategy, true); err != nil {
		return pipeline.StageResult{}, fmt.Errorf("merge: merge pr #%d: %w", prID, err)
	}

	return pipeline.StageResult{Notes: fmt.Sprintf("merge: merged pr #%d via %s (ci wait %s)", prID, strategy, ciDuration.Round(time.Second))}, nil
}

func (Merge) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("merge: " + res.Notes)
	return nil
}

// adaptiveCIWaitTimeout computes the CI-wait timeout as 1.5x the p90 of
// recorded CI wait times (300s when none are recorded), clamped to
// [120s, 1800s] (spec.md §4.3).
func adaptiveCIWaitTimeout(rc *pipeline.RunContext) time.Duration {
	const fallbackSeconds = 300.0
	p90 := fallbackSeconds
	if rc.Baselines != nil {
		if v, ok := rc.Baselines.CITimeP90(); ok {
			p90 = v
		}
	}
	seconds := p90 * 1.5
	if seconds < 120 {
		seconds = 120
	}
	if seconds > 1800 {
		seconds = 1800
	}
	return time.Duration(seconds) * time.Second
}

func waitForChecks(ctx context.Context, rc *pipeline.RunContext, commit string, timeout, poll time.Duration) error {
	if rc.Tracker == nil {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for {
		checks, err := rc.Tracker.ListCheckRuns(ctx, commit)
		if err == nil {
			allDone, anyFailed := summarizeChecks(checks)
			if anyFailed {
				return fmt.Errorf("CI check(s) failed")
			}
			if allDone {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for CI checks", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

func summarizeChecks(checks []tracker.Check) (allDone, anyFailed bool) {
	if len(checks) == 0 {
		return false, false
	}
	allDone = true
	for _, c := range checks {
		if c.Status != "completed" {
			allDone = false
			continue
		}
		if c.Conclusion == "failure" {
			anyFailed = true
		}
	}
	return allDone, anyFailed
}
