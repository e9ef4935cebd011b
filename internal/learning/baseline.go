package learning

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// RepoHash derives the stable per-repo directory name under baselines/
// (spec.md §6: "<home>/baselines/<repo-hash>/..."), grounded on the
// x/xxhash use elsewhere in the retrieved pack for fast, non-cryptographic
// content hashing of repeatable keys.
func RepoHash(repoIdentifier string) string {
	sum := xxhash.Sum64String(repoIdentifier)
	return fmt.Sprintf("%016x", sum)
}

// BaselineTables groups the five per-repo rolling tables (spec.md §3:
// "perf-history, bundle-history, coverage-baseline" plus the merge stage's
// ci-times and the monitor stage's deploy-monitor baseline).
type BaselineTables struct {
	dir string
}

// NewBaselineTables opens the baseline directory for a repo, keyed by
// RepoHash.
func NewBaselineTables(homeDir, repoHash string) *BaselineTables {
	return &BaselineTables{dir: filepath.Join(homeDir, "baselines", repoHash)}
}

type metricWindow struct {
	Samples []float64 `json:"samples"`
}

func (b *BaselineTables) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// recordMetric appends value to the named rolling-last-10 window.
func (b *BaselineTables) recordMetric(name string, value float64) error {
	var w metricWindow
	readJSON(b.path(name), &w)
	w.Samples = append(w.Samples, value)
	if len(w.Samples) > 10 {
		w.Samples = w.Samples[len(w.Samples)-10:]
	}
	return writeJSONAtomic(b.path(name), w)
}

// meanStddev returns the sample mean and population standard deviation of
// the named window, or ok=false if no samples exist.
func (b *BaselineTables) meanStddev(name string) (mean, stddev float64, ok bool) {
	var w metricWindow
	if !readJSON(b.path(name), &w) || len(w.Samples) == 0 {
		return 0, 0, false
	}
	sum := 0.0
	for _, v := range w.Samples {
		sum += v
	}
	mean = sum / float64(len(w.Samples))
	var variance float64
	for _, v := range w.Samples {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(w.Samples))
	return mean, math.Sqrt(variance), true
}

// RecordPerf appends a performance-benchmark sample.
func (b *BaselineTables) RecordPerf(v float64) error { return b.recordMetric("perf-history", v) }

// PerfBaseline returns the rolling mean/stddev for perf-regression checks
// (spec.md §4.3: "perf regression vs rolling mean ± kσ").
func (b *BaselineTables) PerfBaseline() (mean, stddev float64, ok bool) {
	return b.meanStddev("perf-history")
}

// RecordBundleSize appends a bundle-size sample.
func (b *BaselineTables) RecordBundleSize(v float64) error { return b.recordMetric("bundle-history", v) }

// BundleBaseline returns the rolling mean/stddev for bundle-size checks.
func (b *BaselineTables) BundleBaseline() (mean, stddev float64, ok bool) {
	return b.meanStddev("bundle-history")
}

// RecordCoverage appends a coverage-percentage sample.
func (b *BaselineTables) RecordCoverage(v float64) error { return b.recordMetric("coverage", v) }

// CoverageBaseline returns the rolling mean/stddev for coverage regression
// checks.
func (b *BaselineTables) CoverageBaseline() (mean, stddev float64, ok bool) {
	return b.meanStddev("coverage")
}

// RecordCITime appends a CI-wait-duration sample (seconds), used by the
// merge stage's adaptive timeout.
func (b *BaselineTables) RecordCITime(seconds float64) error { return b.recordMetric("ci-times", seconds) }

// CITimeP90 returns the 90th-percentile CI wait time, or ok=false if no
// data exists.
func (b *BaselineTables) CITimeP90() (float64, bool) {
	var w metricWindow
	if !readJSON(b.path("ci-times"), &w) || len(w.Samples) == 0 {
		return 0, false
	}
	return percentileOf(w.Samples, 0.90), true
}

// RecordDeployMonitor appends a post-deploy error-rate sample, used by the
// monitor stage's rollback threshold and future baselines.
func (b *BaselineTables) RecordDeployMonitor(errorRate float64) error {
	return b.recordMetric("deploy-monitor", errorRate)
}

// DeployMonitorBaseline returns the rolling mean/stddev of post-deploy
// error rates.
func (b *BaselineTables) DeployMonitorBaseline() (mean, stddev float64, ok bool) {
	return b.meanStddev("deploy-monitor")
}
