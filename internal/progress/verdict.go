package progress

import "github.com/shipwright-run/shipwright/internal/model"

// Thresholds configures the Progress Monitor's escalation points (spec.md
// §4.4: "configurable with defaults 3 and 6").
type Thresholds struct {
	ChecksBeforeWarn int
	ChecksBeforeKill int
}

// DefaultThresholds matches spec.md's documented defaults.
var DefaultThresholds = Thresholds{ChecksBeforeWarn: 3, ChecksBeforeKill: 6}

// jobTracking is the Progress Monitor's per-job counters, kept in memory
// only — cleared on job completion along with the progress file.
type jobTracking struct {
	ring               []model.ProgressSnapshot
	noProgressCount    int
	repeatedErrorCount int
}

// assess compares the new snapshot against the last one recorded for this
// job and returns whether anything counts as progress (spec.md §4.4 step 2).
func assess(t *jobTracking, next model.ProgressSnapshot, consumingCPU bool) bool {
	if len(t.ring) == 0 {
		return true
	}
	prev := t.ring[len(t.ring)-1]

	stageAdvanced := model.Index(next.Stage) > model.Index(prev.Stage)
	iterationAdvanced := next.Iteration > prev.Iteration
	diffGrew := next.DiffLines > prev.DiffLines
	filesGrew := next.FilesChanged > prev.FilesChanged

	progressed := stageAdvanced || iterationAdvanced || diffGrew || filesGrew || consumingCPU

	if next.LastErrorSignature != "" {
		if next.LastErrorSignature == prev.LastErrorSignature {
			t.repeatedErrorCount++
		} else {
			t.repeatedErrorCount = 0
		}
	}

	return progressed
}

// verdict maps a job's current counters to a Verdict using the
// threshold-based fallback rule (spec.md §4.4 step 3, second bullet — the
// "vitals computation" branch of the spec is an optional external signal
// this daemon does not have wired, so the rule-based fallback is
// authoritative here).
func verdict(t *jobTracking, th Thresholds) model.Verdict {
	switch {
	case t.repeatedErrorCount >= 3:
		return model.VerdictStuck
	case t.noProgressCount >= th.ChecksBeforeKill:
		return model.VerdictStuck
	case t.noProgressCount >= th.ChecksBeforeWarn:
		return model.VerdictStalled
	case t.noProgressCount >= 1:
		return model.VerdictSlowing
	default:
		return model.VerdictHealthy
	}
}
