package history

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Metric names the quantities the compound-quality stage already tracks
// against a rolling mean in the JSONL BaselineTables (perf, bundle size,
// coverage, CI wait time, deploy error rate); this package is just their
// durable long-term twin.
type Metric string

const (
	MetricPerf          Metric = "perf"
	MetricBundleSize    Metric = "bundle_size"
	MetricCoverage      Metric = "coverage"
	MetricCITime        Metric = "ci_time"
	MetricDeployMonitor Metric = "deploy_monitor"
)

// Verdict is the outcome of comparing an observed sample against its
// rolling baseline.
type Verdict string

const (
	VerdictPass       Verdict = "pass"
	VerdictRegression Verdict = "regression"
)

// BaselineSample is one recorded observation for a repo/metric pair.
type BaselineSample struct {
	RepoHash   string
	Metric     Metric
	Value      float64
	RecordedAt time.Time
}

// CheckResult is one regression-check outcome.
type CheckResult struct {
	RepoHash       string
	Metric         Metric
	IssueID        int64
	Observed       float64
	BaselineMean   float64
	BaselineStddev float64
	Sigma          float64
	Verdict        Verdict
	CheckedAt      time.Time
}

// Report summarizes recent check verdicts for one repo.
type Report struct {
	RepoHash   string
	Since      time.Time
	TotalCount int
	ByMetric   map[Metric]MetricSummary
}

// MetricSummary is one metric's slice of a Report.
type MetricSummary struct {
	PassCount       int
	RegressionCount int
	LastObserved    float64
	LastVerdict     Verdict
}

// Store is the durable regression ledger's query surface, backing the
// `regression baseline|check|report|history` CLI operations.
type Store struct {
	client *Client
}

// NewStore wraps an already-migrated Client.
func NewStore(c *Client) *Store {
	return &Store{client: c}
}

// RecordBaseline appends one observation (the `regression baseline` op).
func (s *Store) RecordBaseline(ctx context.Context, repoHash string, metric Metric, value float64) error {
	_, err := s.client.db.ExecContext(ctx,
		`INSERT INTO regression_baselines (repo_hash, metric, value) VALUES ($1, $2, $3)`,
		repoHash, string(metric), value)
	if err != nil {
		return fmt.Errorf("record baseline: %w", err)
	}
	return nil
}

// Check computes the rolling mean/stddev over the last window baselines
// for repoHash/metric, compares observed against mean ± sigma*stddev, and
// persists the verdict (the `regression check` op; spec.md §4.3's "perf
// regression vs rolling mean ± kσ" rule applied against the durable
// ledger rather than the in-memory BaselineTables).
func (s *Store) Check(ctx context.Context, repoHash string, metric Metric, issueID int64, observed, sigma float64, window int) (CheckResult, error) {
	rows, err := s.client.db.QueryContext(ctx,
		`SELECT value FROM regression_baselines
		 WHERE repo_hash = $1 AND metric = $2
		 ORDER BY recorded_at DESC LIMIT $3`,
		repoHash, string(metric), window)
	if err != nil {
		return CheckResult{}, fmt.Errorf("check regression: query baselines: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return CheckResult{}, fmt.Errorf("check regression: scan: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return CheckResult{}, err
	}

	mean, stddev := meanStddev(values)
	verdict := VerdictPass
	if len(values) > 0 && math.Abs(observed-mean) > sigma*stddev {
		verdict = VerdictRegression
	}

	result := CheckResult{
		RepoHash: repoHash, Metric: metric, IssueID: issueID, Observed: observed,
		BaselineMean: mean, BaselineStddev: stddev, Sigma: sigma, Verdict: verdict, CheckedAt: time.Now().UTC(),
	}

	_, err = s.client.db.ExecContext(ctx,
		`INSERT INTO regression_checks
		 (repo_hash, metric, issue_id, observed, baseline_mean, baseline_stddev, sigma, verdict, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		result.RepoHash, string(result.Metric), result.IssueID, result.Observed,
		result.BaselineMean, result.BaselineStddev, result.Sigma, string(result.Verdict), result.CheckedAt)
	if err != nil {
		return CheckResult{}, fmt.Errorf("check regression: persist verdict: %w", err)
	}
	return result, nil
}

// Report summarizes check verdicts for repoHash since the given time (the
// `regression report` op).
func (s *Store) Report(ctx context.Context, repoHash string, since time.Time) (Report, error) {
	rows, err := s.client.db.QueryContext(ctx,
		`SELECT metric, observed, verdict, checked_at FROM regression_checks
		 WHERE repo_hash = $1 AND checked_at >= $2
		 ORDER BY checked_at ASC`,
		repoHash, since)
	if err != nil {
		return Report{}, fmt.Errorf("report: query checks: %w", err)
	}
	defer rows.Close()

	report := Report{RepoHash: repoHash, Since: since, ByMetric: map[Metric]MetricSummary{}}
	for rows.Next() {
		var metric, verdict string
		var observed float64
		var checkedAt time.Time
		if err := rows.Scan(&metric, &observed, &verdict, &checkedAt); err != nil {
			return Report{}, fmt.Errorf("report: scan: %w", err)
		}
		m := Metric(metric)
		summary := report.ByMetric[m]
		if verdict == string(VerdictRegression) {
			summary.RegressionCount++
		} else {
			summary.PassCount++
		}
		summary.LastObserved = observed
		summary.LastVerdict = Verdict(verdict)
		report.ByMetric[m] = summary
		report.TotalCount++
	}
	return report, rows.Err()
}

// History returns the raw baseline and check rows for repoHash/metric,
// most recent first, capped at limit (the `regression history` op).
func (s *Store) History(ctx context.Context, repoHash string, metric Metric, limit int) ([]BaselineSample, []CheckResult, error) {
	baselineRows, err := s.client.db.QueryContext(ctx,
		`SELECT value, recorded_at FROM regression_baselines
		 WHERE repo_hash = $1 AND metric = $2
		 ORDER BY recorded_at DESC LIMIT $3`,
		repoHash, string(metric), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("history: query baselines: %w", err)
	}
	defer baselineRows.Close()

	var samples []BaselineSample
	for baselineRows.Next() {
		var bs BaselineSample
		bs.RepoHash, bs.Metric = repoHash, metric
		if err := baselineRows.Scan(&bs.Value, &bs.RecordedAt); err != nil {
			return nil, nil, fmt.Errorf("history: scan baseline: %w", err)
		}
		samples = append(samples, bs)
	}
	if err := baselineRows.Err(); err != nil {
		return nil, nil, err
	}

	checkRows, err := s.client.db.QueryContext(ctx,
		`SELECT issue_id, observed, baseline_mean, baseline_stddev, sigma, verdict, checked_at
		 FROM regression_checks WHERE repo_hash = $1 AND metric = $2
		 ORDER BY checked_at DESC LIMIT $3`,
		repoHash, string(metric), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("history: query checks: %w", err)
	}
	defer checkRows.Close()

	var checks []CheckResult
	for checkRows.Next() {
		c := CheckResult{RepoHash: repoHash, Metric: metric}
		var verdict string
		var issueID *int64
		if err := checkRows.Scan(&issueID, &c.Observed, &c.BaselineMean, &c.BaselineStddev, &c.Sigma, &verdict, &c.CheckedAt); err != nil {
			return nil, nil, fmt.Errorf("history: scan check: %w", err)
		}
		if issueID != nil {
			c.IssueID = *issueID
		}
		c.Verdict = Verdict(verdict)
		checks = append(checks, c)
	}
	return samples, checks, checkRows.Err()
}

func meanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return mean, math.Sqrt(variance)
}
