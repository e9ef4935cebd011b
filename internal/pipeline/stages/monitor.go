package stages

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// errorRatePattern extracts a post-deploy error-rate figure the monitor
// command is expected to print, e.g. "error_rate=0.4%".
var errorRatePattern = regexp.MustCompile(`(?i)error_rate[=: ]+([\d.]+)`)

// monitorRollbackSigma is the number of standard deviations above the
// rolling mean error rate that triggers a rollback (spec.md §4.3: "perf
// regression vs rolling mean ± kσ" reused here for the post-deploy error
// rate).
const monitorRollbackSigma = 2.0

// Monitor polls the configured post-deploy health/log-error command and
// compares the observed error rate against the rolling baseline, flagging
// a rollback if it regresses beyond the sigma threshold. Terminal stage:
// a rollback trigger fails the run fast, since there is nothing left
// downstream to retry into.
type Monitor struct{}

func (Monitor) ID() model.StageID                  { return model.StageMonitor }
func (Monitor) FailurePolicy() model.FailurePolicy { return model.PolicyFailFast }

func (Monitor) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Monitor) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	cmd := "echo no-op monitor"
	if rc.Template != nil && rc.Template.Commands.Monitor != "" {
		cmd = rc.Template.Commands.Monitor
	}
	runner := pipeline.NewShellTestRunner(cmd)
	ok, log, err := runner.RunTests(ctx, rc.Worktree)
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("monitor: %w", err)
	}
	if !ok {
		return pipeline.StageResult{}, fmt.Errorf("monitor: health check failed:\n%s", truncateLog(log, 4000))
	}

	errorRate, found := parseErrorRate(log)
	if !found {
		return pipeline.StageResult{Notes: "monitor: no error-rate figure reported, treating as healthy"}, nil
	}

	if rc.Baselines != nil {
		defer func() { _ = rc.Baselines.RecordDeployMonitor(errorRate) }()

		if mean, stddev, ok := rc.Baselines.DeployMonitorBaseline(); ok && stddev > 0 {
			if errorRate > mean+monitorRollbackSigma*stddev {
				if rc.Tracker != nil {
					_ = rc.Tracker.Comment(ctx, rc.Job.IssueID,
						fmt.Sprintf("Shipwright detected a post-deploy error-rate regression (%.4f vs baseline %.4f±%.4f) and is rolling back.",
							errorRate, mean, stddev))
				}
				return pipeline.StageResult{}, fmt.Errorf(
					"monitor: error rate %.4f exceeds baseline %.4f + %gσ (%.4f), triggering rollback",
					errorRate, mean, monitorRollbackSigma, stddev)
			}
		}
	}

	return pipeline.StageResult{Notes: fmt.Sprintf("monitor: error rate %.4f within baseline", errorRate)}, nil
}

func (Monitor) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("monitor: " + res.Notes)
	return nil
}

func parseErrorRate(output string) (float64, bool) {
	m := errorRatePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
