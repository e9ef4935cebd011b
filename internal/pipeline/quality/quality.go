// Package quality implements the compound-quality cycle engine driven by
// the pipeline's compound_quality stage (spec.md §4.3): multi-audit
// findings, convergence/plateau detection, and the quality-score gate. No
// direct teacher analogue exists (tarsy has no multi-round self-critique
// loop); built in the teacher's small-struct, explicit-state-machine idiom
// from pkg/agent/orchestrator/runner.go's iteration-counter pattern.
package quality

// Severity classifies one finding's weight toward the quality score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Category is one of the six finding routes (spec.md §4.3).
type Category string

const (
	CategoryArchitecture Category = "architecture"
	CategorySecurity     Category = "security"
	CategoryCorrectness  Category = "correctness"
	CategoryPerformance  Category = "performance"
	CategoryTesting      Category = "testing"
	CategoryStyle        Category = "style"
)

// Finding is one issue surfaced by a compound-quality audit.
type Finding struct {
	Category Category
	Severity Severity
	Message  string
}

// Route determines where a finding's fix-back instruction is routed
// (spec.md §4.3: "architecture → backtrack ... security → build with
// security-first ... others → build with route-appropriate instruction").
type Route string

const (
	RouteBacktrackDesign Route = "backtrack_design"
	RouteBuildSecurity   Route = "build_security_first"
	RouteBuildGeneral    Route = "build_general"
)

// RouteFor maps a finding's category to its recovery route.
func RouteFor(c Category) Route {
	switch c {
	case CategoryArchitecture:
		return RouteBacktrackDesign
	case CategorySecurity:
		return RouteBuildSecurity
	default:
		return RouteBuildGeneral
	}
}

// CycleResult is one compound-quality cycle's outcome.
type CycleResult struct {
	Findings    []Finding
	DoDPassRate float64
	AuditsRun   int
}

// CriticalHighCount returns the number of critical or major findings —
// the count the convergence detector tracks across cycles.
func (r CycleResult) CriticalHighCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical || f.Severity == SeverityMajor {
			n++
		}
	}
	return n
}

// Score computes the quality score: starts at 100, deducts 20/10/2 per
// critical/major/minor finding, floored at 0 (spec.md §4.3).
func Score(findings []Finding) int {
	score := 100
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			score -= 20
		case SeverityMajor:
			score -= 10
		case SeverityMinor:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Trend is the convergence detector's verdict comparing two cycles'
// critical/high counts (spec.md §4.3).
type Trend string

const (
	TrendRapidDrop  Trend = "rapid_drop"  // >50% drop: extend cycle limit by one
	TrendIncreased  Trend = "increased"   // reduce remaining cycles by one
	TrendPlateau    Trend = "plateau"     // unchanged after the first cycle: stop early and fail
	TrendSteady     Trend = "steady"      // decreased but not rapidly, or first cycle
)

// Convergence compares prevCount (previous cycle's critical/high count) to
// curCount (this cycle's), given whether this is the first cycle.
func Convergence(prevCount, curCount int, firstCycle bool) Trend {
	if firstCycle {
		return TrendSteady
	}
	if curCount == prevCount {
		return TrendPlateau
	}
	if curCount > prevCount {
		return TrendIncreased
	}
	if prevCount > 0 && float64(curCount) < float64(prevCount)*0.5 {
		return TrendRapidDrop
	}
	return TrendSteady
}

// GateThreshold is the hard floor no template may configure below
// (spec.md §4.3: "hard floor 40").
const GateThreshold = 40

// PassesGate reports whether score clears the configured per-template
// threshold, never below GateThreshold.
func PassesGate(score, templateThreshold int) bool {
	threshold := templateThreshold
	if threshold < GateThreshold {
		threshold = GateThreshold
	}
	return score >= threshold
}
