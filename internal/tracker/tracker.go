// Package tracker defines the issue-tracker external collaborator
// interface (spec.md §1, §6) and its concrete implementations: an HTTP
// client against GitHub's REST API, grounded on the teacher's
// pkg/runbook/github.go GitHubClient (context, bounded timeout, typed
// HTTP-status errors), and an in-memory offline implementation for
// NO_GITHUB / tests.
package tracker

import (
	"context"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
)

// Check is one CI check run's status (spec.md §6: list_check_runs).
type Check struct {
	Name       string
	Status     string // "queued" | "in_progress" | "completed"
	Conclusion string // "success" | "failure" | "neutral" | ...
}

// PR is the tracker's pull-request handle.
type PR struct {
	ID     int64
	Number int
	URL    string
	Head   string
	Base   string
}

// BranchProtection mirrors the tracker's branch-protection rules
// (spec.md §6).
type BranchProtection struct {
	RequiredReviews int
	RequiredChecks  []string
	EnforceAdmins   bool
}

// Tracker is the minimal capability set spec.md §6 requires of the issue
// tracker / code host integration.
type Tracker interface {
	ListIssues(ctx context.Context, label, state string) ([]model.Issue, error)
	GetIssue(ctx context.Context, id int64) (model.Issue, error)
	AddLabel(ctx context.Context, id int64, label string) error
	RemoveLabel(ctx context.Context, id int64, label string) error
	Comment(ctx context.Context, id int64, body string) error
	Close(ctx context.Context, id int64, comment string) error
	CreatePR(ctx context.Context, head, base, title, body string, labels, reviewers []string, milestone string) (PR, error)
	MergePR(ctx context.Context, id int64, strategy string, deleteBranch bool) error
	BranchProtection(ctx context.Context, repo, branch string) (BranchProtection, error)
	ListCheckRuns(ctx context.Context, commit string) ([]Check, error)
}

// DefaultAuthProbeTimeout bounds the Supervisor's pre-flight auth check
// against the tracker (spec.md §4.5 step 1: "15 s bounded timeout").
const DefaultAuthProbeTimeout = 15 * time.Second
