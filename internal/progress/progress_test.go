package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/vcs"
)

type fakeVCS struct{ stats vcs.Stats }

func (f fakeVCS) WorkingTreeStats(_ context.Context) (vcs.Stats, error) { return f.stats, nil }

func TestWriteReadHeartbeat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteHeartbeat(dir, Heartbeat{Stage: model.StageBuild, Iteration: 2}))
	hb, ok := readHeartbeat(dir)
	require.True(t, ok)
	assert.Equal(t, model.StageBuild, hb.Stage)
	assert.Equal(t, 2, hb.Iteration)
}

func TestTailErrorSignature_StableAcrossIdenticalLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, errorLogFileName), []byte("build failed\ncompile error: x.go:10\n"), 0o644))
	sig1, ok := tailErrorSignature(dir)
	require.True(t, ok)

	sig2, ok := tailErrorSignature(dir)
	require.True(t, ok)
	assert.Equal(t, sig1, sig2)
}

func TestTailErrorSignature_DifferentLineDifferentSignature(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, errorLogFileName), []byte("error A\n"), 0o644))
	sigA, _ := tailErrorSignature(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, errorLogFileName), []byte("error A\nerror B\n"), 0o644))
	sigB, _ := tailErrorSignature(dir)

	assert.NotEqual(t, sigA, sigB)
}

func TestAssess_StageAdvanceCountsAsProgress(t *testing.T) {
	tr := &jobTracking{ring: []model.ProgressSnapshot{{Stage: model.StageBuild, Iteration: 1}}}
	next := model.ProgressSnapshot{Stage: model.StageTest, Iteration: 1}
	assert.True(t, assess(tr, next, false))
}

func TestAssess_NoChangeNoCPU_NotProgress(t *testing.T) {
	tr := &jobTracking{ring: []model.ProgressSnapshot{{Stage: model.StageBuild, Iteration: 1, DiffLines: 5}}}
	next := model.ProgressSnapshot{Stage: model.StageBuild, Iteration: 1, DiffLines: 5}
	assert.False(t, assess(tr, next, false))
}

func TestAssess_CPUActivityCountsAsProgress(t *testing.T) {
	tr := &jobTracking{ring: []model.ProgressSnapshot{{Stage: model.StageBuild, Iteration: 1}}}
	next := model.ProgressSnapshot{Stage: model.StageBuild, Iteration: 1}
	assert.True(t, assess(tr, next, true))
}

func TestAssess_RepeatedErrorSignatureIncrementsCounter(t *testing.T) {
	tr := &jobTracking{ring: []model.ProgressSnapshot{{Stage: model.StageBuild, LastErrorSignature: "abc"}}}
	next := model.ProgressSnapshot{Stage: model.StageBuild, LastErrorSignature: "abc"}
	assess(tr, next, false)
	assert.Equal(t, 1, tr.repeatedErrorCount)
}

func TestAssess_DifferentErrorResetsCounter(t *testing.T) {
	tr := &jobTracking{repeatedErrorCount: 2, ring: []model.ProgressSnapshot{{Stage: model.StageBuild, LastErrorSignature: "abc"}}}
	next := model.ProgressSnapshot{Stage: model.StageBuild, LastErrorSignature: "xyz"}
	assess(tr, next, false)
	assert.Equal(t, 0, tr.repeatedErrorCount)
}

func TestVerdict_ThresholdEscalation(t *testing.T) {
	th := DefaultThresholds
	assert.Equal(t, model.VerdictHealthy, verdict(&jobTracking{}, th))
	assert.Equal(t, model.VerdictSlowing, verdict(&jobTracking{noProgressCount: 1}, th))
	assert.Equal(t, model.VerdictStalled, verdict(&jobTracking{noProgressCount: 3}, th))
	assert.Equal(t, model.VerdictStuck, verdict(&jobTracking{noProgressCount: 6}, th))
	assert.Equal(t, model.VerdictStuck, verdict(&jobTracking{repeatedErrorCount: 3}, th))
}

func TestMonitor_CheckJob_DetectsStallOverTicks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteHeartbeat(dir, Heartbeat{Stage: model.StageBuild, Iteration: 1}))

	m := NewMonitor(10*time.Millisecond, Thresholds{ChecksBeforeWarn: 1, ChecksBeforeKill: 2}, func(string) vcs.Client {
		return fakeVCS{}
	})
	job := ActiveJob{IssueID: 42, Worktree: dir}

	ctx := context.Background()
	r1 := m.checkJob(ctx, job)
	assert.Equal(t, model.VerdictHealthy, r1.Verdict)

	r2 := m.checkJob(ctx, job)
	assert.Equal(t, model.VerdictStalled, r2.Verdict)

	r3 := m.checkJob(ctx, job)
	assert.Equal(t, model.VerdictStuck, r3.Verdict)

	m.Clear(job.IssueID)
	m.mu.Lock()
	_, exists := m.tracking[job.IssueID]
	m.mu.Unlock()
	assert.False(t, exists)
}
