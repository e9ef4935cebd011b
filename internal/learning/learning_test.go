package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationTable_RecordAndPercentile(t *testing.T) {
	dir := t.TempDir()
	table := NewPipelineDurations(dir)

	for i := 1; i <= 10; i++ {
		require.NoError(t, table.Record("fast", time.Duration(i)*time.Second))
	}
	p, ok := table.PercentileSeconds("fast", 999)
	assert.True(t, ok)
	assert.Greater(t, p, 0.0)
}

func TestDurationTable_MissingFallsBack(t *testing.T) {
	table := NewStageDurations(t.TempDir())
	p, ok := table.PercentileSeconds("build", 42)
	assert.False(t, ok)
	assert.Equal(t, 42.0, p)
}

func TestQualityScores_WeightsAndRecentAverage(t *testing.T) {
	q := NewQualityScores(t.TempDir(), 0)

	require.NoError(t, q.Record(QualityScoreRecord{Template: "fast", Score: 90}, true, 60))
	require.NoError(t, q.Record(QualityScoreRecord{Template: "fast", Score: 40, Critical: 1}, false, 60))
	require.NoError(t, q.Record(QualityScoreRecord{Template: "fast", Score: 95}, true, 60))

	weights := q.Weights()
	w := weights["fast"]
	assert.Equal(t, 3, w.SampleSize)
	assert.InDelta(t, 2.0/3.0, w.SuccessRate, 0.001)

	avg, recentCritical, hasData := q.RecentAverage("fast", 5)
	assert.True(t, hasData)
	assert.True(t, recentCritical)
	assert.InDelta(t, (90.0+40.0+95.0)/3.0, avg, 0.001)
}

func TestIterationModel_RecommendFallback(t *testing.T) {
	m := NewIterationModel(t.TempDir())
	_, ok := m.Recommend("repo-a")
	assert.False(t, ok)

	require.NoError(t, m.Observe("repo-a", 3))
	require.NoError(t, m.Observe("repo-a", 5))
	rec, ok := m.Recommend("repo-a")
	assert.True(t, ok)
	assert.Equal(t, 4, rec)
}

func TestBaselineTables_PerfRegression(t *testing.T) {
	b := NewBaselineTables(t.TempDir(), RepoHash("github.com/example/repo"))

	for _, v := range []float64{100, 102, 98, 101, 99} {
		require.NoError(t, b.RecordPerf(v))
	}
	mean, stddev, ok := b.PerfBaseline()
	assert.True(t, ok)
	assert.InDelta(t, 100, mean, 2)
	assert.Greater(t, stddev, 0.0)
}

func TestRepoHash_Stable(t *testing.T) {
	a := RepoHash("github.com/example/repo")
	b := RepoHash("github.com/example/repo")
	c := RepoHash("github.com/example/other")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
