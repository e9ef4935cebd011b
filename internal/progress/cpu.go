package progress

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// cpuActivityThreshold is the minimum CPU-time percentage a subprocess must
// show since the last sample to count as "consuming CPU" (spec.md §4.4
// step 2: one of the five progress-or signals).
const cpuActivityThreshold = 1.0

// isConsumingCPU reports whether pid is an active process currently using
// meaningful CPU. gopsutil's Percent call is itself a two-sample delta
// internally when called without an interval pre-warm, so a single call
// after the process has been running for a moment is representative
// enough for this coarse signal. Any lookup failure (pid exited, no
// permission) is treated as "not consuming" rather than an error — a dead
// process trivially isn't making progress.
func isConsumingCPU(ctx context.Context, pid int) bool {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	pct, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return false
	}
	return pct >= cpuActivityThreshold
}
