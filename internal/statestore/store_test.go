package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flockFor(t *testing.T, s *Store) *flock.Flock {
	t.Helper()
	require.NoError(t, ensureDir(s.homeDir))
	return flock.New(s.lockPath)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), 50000)
}

func TestInit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx, model.RuntimeConfig{MaxParallel: 3, WatchLabel: "shipwright"}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shipwright", snap.Config.WatchLabel)
	assert.NotZero(t, snap.PID)
}

func TestAddAndPopQueued_PriorityPreemption(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddQueued(ctx, 1, false))
	require.NoError(t, s.AddQueued(ctx, 2, false))
	require.NoError(t, s.AddQueued(ctx, 3, true)) // priority, added last, must pop first

	id, ok, err := s.PopQueued(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), id)

	id, ok, err = s.PopQueued(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), id) // FIFO within the non-priority lane
}

func TestPopQueued_Empty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.PopQueued(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdmit_CapacityBound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := s.Admit(ctx, model.Job{IssueID: i}, 3, 1, 3)
		require.NoError(t, err)
		require.True(t, res.Admitted)
	}

	res, err := s.Admit(ctx, model.Job{IssueID: 4}, 3, 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, RejectCapacityFull, res.Reason)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.ActiveJobs, 3)
}

func TestAdmit_PriorityLaneCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Admit(ctx, model.Job{IssueID: 1, Priority: true}, 3, 1, 3)
	require.NoError(t, err)
	require.True(t, res.Admitted)

	res, err = s.Admit(ctx, model.Job{IssueID: 2, Priority: true}, 3, 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, RejectPriorityLaneFull, res.Reason)
}

func TestAdmit_Blacklisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		res, err := s.Admit(ctx, model.Job{IssueID: 99}, 3, 1, 3)
		require.NoError(t, err)
		require.True(t, res.Admitted, "attempt %d should admit", i)
		require.NoError(t, s.Complete(ctx, 99, model.Outcome{IssueID: 99, Status: model.JobFailed}))
	}

	// retry_counts[99] is now 4, exceeding max_retries=3: blacklisted.
	res, err := s.Admit(ctx, model.Job{IssueID: 99}, 3, 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Admitted)
	assert.Equal(t, RejectBlacklisted, res.Reason)
}

func TestAdmitComplete_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Admit(ctx, model.Job{IssueID: 7, Template: "fast"}, 3, 1, 3)
	require.NoError(t, err)
	require.True(t, res.Admitted)

	before, err := s.Snapshot(ctx)
	require.NoError(t, err)
	activeBefore, completedBefore := len(before.ActiveJobs), len(before.Completed)

	require.NoError(t, s.Complete(ctx, 7, model.Outcome{IssueID: 7, Status: model.JobSucceeded}))

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, activeBefore-1, len(after.ActiveJobs))
	assert.Equal(t, completedBefore+1, len(after.Completed))
}

func TestActiveCountLocked_SafeFullOnTimeout(t *testing.T) {
	s := newTestStore(t).WithLockTimeout(50 * time.Millisecond)
	ctx := context.Background()

	fl := flockFor(t, s)
	locked, err := fl.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer fl.Unlock()

	count := s.ActiveCountLocked(ctx, 3)
	assert.Equal(t, 3, count, "must return max_parallel, never 0, on lock timeout")
}

func TestPauseMarker(t *testing.T) {
	s := newTestStore(t)

	paused, marker := s.IsPaused()
	assert.False(t, paused)
	assert.Nil(t, marker)

	require.NoError(t, s.SetPauseMarker("preflight failed"))
	paused, marker = s.IsPaused()
	assert.True(t, paused)
	require.NotNil(t, marker)
	assert.Equal(t, "preflight failed", marker.Reason)

	require.NoError(t, s.ClearPauseMarker())
	paused, _ = s.IsPaused()
	assert.False(t, paused)
}
