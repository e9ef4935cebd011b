package triage

import (
	"context"
	"regexp"

	"github.com/shipwright-run/shipwright/internal/tracker"
)

// blockerPattern matches GitHub's "blocked by #123" / "depends on #123"
// issue-body conventions, the same ones the teacher's pkg/runbook linkage
// scanner looks for in incident descriptions.
var blockerPattern = regexp.MustCompile(`(?i)(?:blocked by|depends on)\s+#(\d+)`)

// TrackerDependencyChecker resolves the Dependency scoring signal directly
// against the issue tracker: an issue has an open blocker if its body
// references one by number and that referenced issue still resolves through
// the tracker (its open/closed state is not checked), and it is
// referenced-by-others if any other open issue's body names it back.
type TrackerDependencyChecker struct {
	Tracker tracker.Tracker
}

// NewTrackerDependencyChecker constructs a checker backed by tr.
func NewTrackerDependencyChecker(tr tracker.Tracker) *TrackerDependencyChecker {
	return &TrackerDependencyChecker{Tracker: tr}
}

// Check implements DependencyChecker.
func (c *TrackerDependencyChecker) Check(ctx context.Context, issueID int64) (DependencySignal, error) {
	issue, err := c.Tracker.GetIssue(ctx, issueID)
	if err != nil {
		return DependencySignal{}, err
	}

	// GetIssue surfaces whatever the tracker currently holds for an id; a
	// referenced issue that no longer resolves is treated as closed/gone
	// rather than as a live blocker.
	var sig DependencySignal
	for _, m := range blockerPattern.FindAllStringSubmatch(issue.Body, -1) {
		blockerID := parseIssueRef(m[1])
		if blockerID == 0 {
			continue
		}
		if _, getErr := c.Tracker.GetIssue(ctx, blockerID); getErr == nil {
			sig.HasOpenBlocker = true
			break
		}
	}

	open, err := c.Tracker.ListIssues(ctx, "", "open")
	if err != nil {
		return DependencySignal{}, err
	}
	for _, other := range open {
		if other.ID == issueID {
			continue
		}
		for _, m := range blockerPattern.FindAllStringSubmatch(other.Body, -1) {
			if parseIssueRef(m[1]) == issueID {
				sig.ReferencedByOthers = true
			}
		}
	}

	return sig, nil
}

func parseIssueRef(raw string) int64 {
	var n int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		n = n*10 + int64(r-'0')
	}
	return n
}
