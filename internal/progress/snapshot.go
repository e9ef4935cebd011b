package progress

import (
	"context"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/vcs"
)

// SnapshotRingCap bounds per-job snapshot history kept in memory.
const SnapshotRingCap = 10

// collectSnapshot builds one ProgressSnapshot for an active job (spec.md
// §4.4 step 1): heartbeat file (falling back to PipelineState), diff
// statistics, and error-log tail signature.
func collectSnapshot(ctx context.Context, worktree string, vcsClient vcs.Client) model.ProgressSnapshot {
	hb, ok := readHeartbeat(worktree)
	if !ok {
		hb, _ = readPipelineStateFallback(worktree)
	}

	snap := model.ProgressSnapshot{
		Stage:     hb.Stage,
		Iteration: hb.Iteration,
		Timestamp: time.Now().UTC(),
	}

	if vcsClient != nil {
		if stats, err := vcsClient.WorkingTreeStats(ctx); err == nil {
			snap.DiffLines = stats.Total()
			snap.FilesChanged = stats.FilesChanged
		}
	}

	if sig, ok := tailErrorSignature(worktree); ok {
		snap.LastErrorSignature = sig
	}

	return snap
}

// appendSnapshot pushes s onto ring, evicting the oldest entry once
// SnapshotRingCap is exceeded.
func appendSnapshot(ring []model.ProgressSnapshot, s model.ProgressSnapshot) []model.ProgressSnapshot {
	ring = append(ring, s)
	if len(ring) > SnapshotRingCap {
		ring = ring[len(ring)-SnapshotRingCap:]
	}
	return ring
}
