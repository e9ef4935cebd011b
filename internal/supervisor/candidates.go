package supervisor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shipwright-run/shipwright/internal/dashboard"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/tracker"
)

// ClaimLabelPrefix namespaces the peer-coordination advisory label
// (spec.md §4.5 step 3: "peer coordination via an advisory label
// `claimed:<machine>`").
const ClaimLabelPrefix = "claimed:"

// claimLabel returns this host's claim label.
func claimLabel() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return ClaimLabelPrefix + host
}

// FetchCandidates lists open issues carrying watchLabel and filters out
// those already claimed by a peer (any other `claimed:*` label present).
// Retried up to 3 times (4 attempts in all) with exponential backoff via
// go-retry, since a
// transient tracker-API hiccup should not stall an entire poll cycle.
func FetchCandidates(ctx context.Context, tr tracker.Tracker, watchLabel string) ([]model.Issue, error) {
	var issues []model.Issue

	b, err := retry.NewExponential(500 * time.Millisecond)
	if err != nil {
		return nil, err
	}
	b = retry.WithMaxRetries(3, b)

	err = retry.Do(ctx, b, func(ctx context.Context) error {
		result, fetchErr := tr.ListIssues(ctx, watchLabel, "open")
		if fetchErr != nil {
			return retry.RetryableError(fetchErr)
		}
		issues = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	mine := claimLabel()
	out := make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		if claimedByPeer(issue, mine) {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

// FilterDashboardClaims drops issues a peer's dashboard reports as already
// claimed (spec.md §9 open question 2: consult the dashboard endpoint when
// DASHBOARD_URL is configured, rather than relying solely on the advisory
// label). Best-effort: when the consult fails for one issue, that issue is
// kept rather than dropped and the error is not reported, since the
// label-based filter in FetchCandidates already ran first.
func FilterDashboardClaims(ctx context.Context, peer *dashboard.PeerClient, issues []model.Issue) []model.Issue {
	if peer == nil {
		return issues
	}
	out := make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		claimed, err := peer.IsClaimed(ctx, issue.ID)
		if err != nil {
			out = append(out, issue)
			continue
		}
		if !claimed {
			out = append(out, issue)
		}
	}
	return out
}

func claimedByPeer(issue model.Issue, mine string) bool {
	for _, l := range issue.Labels {
		if len(l) > len(ClaimLabelPrefix) && l[:len(ClaimLabelPrefix)] == ClaimLabelPrefix && l != mine {
			return true
		}
	}
	return false
}

// ClaimIssue writes this host's advisory claim label onto issueID before
// admission.
func ClaimIssue(ctx context.Context, tr tracker.Tracker, issueID int64) error {
	return tr.AddLabel(ctx, issueID, claimLabel())
}

// ReleaseClaim removes this host's advisory claim label from issueID on
// completion (spec.md §4.5 step 6).
func ReleaseClaim(ctx context.Context, tr tracker.Tracker, issueID int64) error {
	return tr.RemoveLabel(ctx, issueID, claimLabel())
}
