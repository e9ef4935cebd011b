package triage

import (
	"context"
	"testing"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerDependencyChecker_NoBlockerReference(t *testing.T) {
	tr := tracker.NewOfflineTracker(model.Issue{ID: 1, Body: "just a plain bug report"})
	c := NewTrackerDependencyChecker(tr)

	sig, err := c.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, sig.HasOpenBlocker)
}

func TestTrackerDependencyChecker_ResolvableBlocker(t *testing.T) {
	tr := tracker.NewOfflineTracker(
		model.Issue{ID: 1, Body: "blocked by #2 until the migration lands"},
		model.Issue{ID: 2, Body: "the migration issue"},
	)
	c := NewTrackerDependencyChecker(tr)

	sig, err := c.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, sig.HasOpenBlocker)
}

func TestTrackerDependencyChecker_BlockerGone(t *testing.T) {
	tr := tracker.NewOfflineTracker(model.Issue{ID: 1, Body: "depends on #99"})
	c := NewTrackerDependencyChecker(tr)

	sig, err := c.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, sig.HasOpenBlocker, "a blocker reference that doesn't resolve isn't a live blocker")
}

func TestTrackerDependencyChecker_CaseInsensitivePhrase(t *testing.T) {
	tr := tracker.NewOfflineTracker(
		model.Issue{ID: 1, Body: "Depends On #2"},
		model.Issue{ID: 2, Body: "blocker"},
	)
	c := NewTrackerDependencyChecker(tr)

	sig, err := c.Check(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, sig.HasOpenBlocker)
}

func TestTrackerDependencyChecker_UnknownIssue(t *testing.T) {
	tr := tracker.NewOfflineTracker()
	c := NewTrackerDependencyChecker(tr)

	_, err := c.Check(context.Background(), 404)
	assert.Error(t, err)
}
