// Package statestore implements the single-blob DaemonState persistence
// layer: locked read-modify-write over state.json with an append-only
// events.jsonl, grounded on the teacher's session manager's
// locked-transaction shape (pkg/session/manager.go) and agentops's
// syscall.Flock append-log idiom (cli/cmd/ao/rpi_loop_supervisor.go),
// generalized to the bounded-timeout lock spec.md §4.1 requires.
package statestore

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// DefaultLockTimeout is the bound on acquiring the state blob's exclusive
// lock (spec.md §4.1): on timeout the caller must treat capacity as full.
const DefaultLockTimeout = 5 * time.Second

// acquireExclusive blocks (polling) until the lock is held or timeout
// elapses, returning shipwrighterr.KindLockTimeout on timeout.
func acquireExclusive(ctx context.Context, fl *flock.Flock, timeout time.Duration) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil || !locked {
		if err == nil {
			err = context.DeadlineExceeded
		}
		return nil, shipwrighterr.New(shipwrighterr.KindLockTimeout, "statestore", "could not acquire state lock within bound", err)
	}
	return func() { _ = fl.Unlock() }, nil
}
