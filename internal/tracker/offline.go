package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/shipwright-run/shipwright/internal/model"
)

// OfflineTracker is an in-memory Tracker used when NO_GITHUB disables
// tracker I/O (spec.md §6), and in tests. All mutations are held in
// memory only; nothing is persisted across process restarts.
type OfflineTracker struct {
	mu     sync.Mutex
	issues map[int64]model.Issue
	nextPR int64
	prs    map[int64]PR
}

// NewOfflineTracker constructs an OfflineTracker seeded with issues.
func NewOfflineTracker(issues ...model.Issue) *OfflineTracker {
	t := &OfflineTracker{issues: make(map[int64]model.Issue), prs: make(map[int64]PR)}
	for _, i := range issues {
		t.issues[i.ID] = i
	}
	return t
}

// ListIssues implements Tracker: returns every seeded issue carrying
// label, ignoring state (offline mode has no notion of tracker-side
// closed/open beyond what the caller removes).
func (t *OfflineTracker) ListIssues(_ context.Context, label, _ string) ([]model.Issue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.Issue
	for _, i := range t.issues {
		if label == "" || i.HasLabel(label) {
			out = append(out, i)
		}
	}
	return out, nil
}

// GetIssue implements Tracker.
func (t *OfflineTracker) GetIssue(_ context.Context, id int64) (model.Issue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.issues[id]
	if !ok {
		return model.Issue{}, fmt.Errorf("offline tracker: issue %d not found", id)
	}
	return i, nil
}

// AddLabel implements Tracker.
func (t *OfflineTracker) AddLabel(_ context.Context, id int64, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.issues[id]
	if !ok {
		return fmt.Errorf("offline tracker: issue %d not found", id)
	}
	if !i.HasLabel(label) {
		i.Labels = append(i.Labels, label)
	}
	t.issues[id] = i
	return nil
}

// RemoveLabel implements Tracker.
func (t *OfflineTracker) RemoveLabel(_ context.Context, id int64, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.issues[id]
	if !ok {
		return fmt.Errorf("offline tracker: issue %d not found", id)
	}
	kept := i.Labels[:0]
	for _, l := range i.Labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	i.Labels = kept
	t.issues[id] = i
	return nil
}

// Comment implements Tracker (no-op beyond acknowledging success).
func (t *OfflineTracker) Comment(_ context.Context, _ int64, _ string) error { return nil }

// Close implements Tracker: removes the issue from the seeded set.
func (t *OfflineTracker) Close(_ context.Context, id int64, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.issues, id)
	return nil
}

// CreatePR implements Tracker.
func (t *OfflineTracker) CreatePR(_ context.Context, head, base, title, body string, _, _ []string, _ string) (PR, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextPR++
	pr := PR{ID: t.nextPR, Number: int(t.nextPR), URL: fmt.Sprintf("offline://pr/%d", t.nextPR), Head: head, Base: base}
	t.prs[pr.ID] = pr
	return pr, nil
}

// MergePR implements Tracker.
func (t *OfflineTracker) MergePR(_ context.Context, id int64, _ string, _ bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.prs[id]; !ok {
		return fmt.Errorf("offline tracker: pr %d not found", id)
	}
	delete(t.prs, id)
	return nil
}

// BranchProtection implements Tracker: offline mode reports no
// protection, the most permissive state.
func (t *OfflineTracker) BranchProtection(_ context.Context, _, _ string) (BranchProtection, error) {
	return BranchProtection{}, nil
}

// ListCheckRuns implements Tracker: offline mode reports all-green,
// zero-wait checks.
func (t *OfflineTracker) ListCheckRuns(_ context.Context, _ string) ([]Check, error) {
	return []Check{{Name: "offline", Status: "completed", Conclusion: "success"}}, nil
}
