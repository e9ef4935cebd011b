// Package triage scores issues, selects a pipeline template, and estimates
// complexity (spec.md §4.2). Grounded on the teacher's layered
// config-resolution style (pkg/config/validator.go, pkg/agent/config_resolver.go):
// apply a rule, fall through to the next if it doesn't fire.
package triage

import (
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
)

// DependencySignal captures what the Dependency Engine (external
// collaborator, §6) knows about an issue's blockers/dependents.
type DependencySignal struct {
	HasOpenBlocker    bool
	ReferencedByOthers bool
}

// MemorySignal captures prior outcomes for the same issue id, used as the
// Memory scoring signal (spec.md §4.2 table).
type MemorySignal struct {
	PriorSuccess bool
	PriorFailure bool
}

// IssueType classifies an issue for the Type scoring signal.
type IssueType string

const (
	TypeSecurity IssueType = "security"
	TypeBug      IssueType = "bug"
	TypeFeature  IssueType = "feature"
	TypeOther    IssueType = "other"
)

// ScoreBreakdown exposes each signal's contribution for logging/debugging
// (spec.md event `daemon.triage score=…` benefits from this detail).
type ScoreBreakdown struct {
	Priority     int
	Age          int
	Complexity   int
	Dependency   int
	Type         int
	Memory       int
	Total        int
}

// Score computes the 0-100 triage score for an issue (spec.md §4.2 table).
// complexity must already be computed (see complexity.go) since the
// Complexity-inverted signal depends on it.
func Score(issue model.Issue, now time.Time, complexity int, dep DependencySignal, mem MemorySignal, issueType IssueType) ScoreBreakdown {
	b := ScoreBreakdown{
		Priority:   priorityScore(issue),
		Age:        ageScore(issue.Age(now)),
		Complexity: complexityScore(complexity),
		Dependency: dependencyScore(dep),
		Type:       typeScore(issueType),
		Memory:     memoryScore(mem),
	}
	b.Total = clamp(b.Priority+b.Age+b.Complexity+b.Dependency+b.Type+b.Memory, 0, 100)
	return b
}

func priorityScore(issue model.Issue) int {
	switch {
	case issue.HasAnyLabel("urgent", "p0"):
		return 30
	case issue.HasAnyLabel("high", "p1"):
		return 20
	case issue.HasAnyLabel("normal", "p2"):
		return 10
	case issue.HasAnyLabel("low", "p3"):
		return 5
	default:
		return 0
	}
}

func ageScore(age time.Duration) int {
	switch {
	case age > 7*24*time.Hour:
		return 15
	case age > 3*24*time.Hour:
		return 10
	case age > 24*time.Hour:
		return 5
	default:
		return 0
	}
}

// complexityScore inverts complexity (1-10) onto the 0..20 range: low
// complexity (short body, few file refs) scores high.
func complexityScore(complexity int) int {
	c := clamp(complexity, 1, 10)
	// complexity 1 -> 20, complexity 10 -> ~0, linear.
	return clamp(20-((c-1)*20)/9, 0, 20)
}

func dependencyScore(dep DependencySignal) int {
	score := 0
	if dep.HasOpenBlocker {
		score -= 15
	}
	if dep.ReferencedByOthers {
		score += 15
	}
	return clamp(score, -15, 15)
}

func typeScore(t IssueType) int {
	switch t {
	case TypeSecurity, TypeBug:
		return 10
	case TypeFeature:
		return 5
	default:
		return 0
	}
}

func memoryScore(mem MemorySignal) int {
	switch {
	case mem.PriorSuccess:
		return 10
	case mem.PriorFailure:
		return -5
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Less implements the tie-break order (spec.md §4.2): higher score first;
// equal scores → older issue first; still equal → numerically smaller id.
func Less(aScore int, aIssue model.Issue, bScore int, bIssue model.Issue) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	if !aIssue.CreatedAt.Equal(bIssue.CreatedAt) {
		return aIssue.CreatedAt.Before(bIssue.CreatedAt)
	}
	return aIssue.ID < bIssue.ID
}
