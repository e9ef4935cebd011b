package pipeline

// AdaptiveCyclesInput carries the signals pipeline_adaptive_cycles combines
// (spec.md §4.3).
type AdaptiveCyclesInput struct {
	Base             int
	LearnedCycles    int  // from iteration-model.json; 0 if none
	HasLearned       bool
	PrevIssues       int
	CurIssues        int
	FirstCycle       bool
	BudgetExhausted  bool
}

// AdaptiveCycleLimit computes the adjusted max_cycles for a compound-quality
// run: learned recommendation, convergence acceleration, divergence
// damping, budget gate, and a hard 2x-base ceiling (spec.md §4.3).
func AdaptiveCycleLimit(in AdaptiveCyclesInput) int {
	if in.BudgetExhausted {
		return 0
	}

	limit := in.Base
	if in.HasLearned && in.LearnedCycles > 0 {
		limit = in.LearnedCycles
	}

	if !in.FirstCycle {
		switch {
		case rapidDrop(in.PrevIssues, in.CurIssues):
			limit++
		case in.CurIssues > in.PrevIssues:
			limit--
		}
	}

	ceiling := 2 * in.Base
	if limit > ceiling {
		limit = ceiling
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// rapidDrop reports whether issue count dropped by more than half between
// cycles (spec.md §4.3: "drops >50% → extend cycle limit by one").
func rapidDrop(prev, cur int) bool {
	if prev <= 0 {
		return false
	}
	return float64(cur) < float64(prev)*0.5
}
