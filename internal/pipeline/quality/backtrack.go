package quality

// MaxBacktracksPerRun bounds architecture-routed backtracks to the design
// stage (spec.md §4.3: "PIPELINE_MAX_BACKTRACKS = 2 per run").
const MaxBacktracksPerRun = 2

// CanBacktrack reports whether another architecture backtrack is allowed
// given the count already used this run.
func CanBacktrack(used int) bool {
	return used < MaxBacktracksPerRun
}
