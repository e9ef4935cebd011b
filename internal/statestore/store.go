package statestore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// Store is the single persistent DaemonState blob plus its event log,
// updated exclusively via locked read-modify-write transforms (spec.md
// §4.1). Callers never see a raw handle — every mutation is a pure
// transform function applied under the lock.
type Store struct {
	homeDir          string
	path             string
	bakPath          string
	lockPath         string
	eventsPath       string
	lockTimeout      time.Duration
	eventLineCeiling int
}

// New constructs a Store rooted at homeDir (spec.md §6 file layout).
// eventLineCeiling <= 0 disables rotation.
func New(homeDir string, eventLineCeiling int) *Store {
	return &Store{
		homeDir:          homeDir,
		path:             join(homeDir, "state.json"),
		bakPath:          join(homeDir, "state.json.bak"),
		lockPath:         join(homeDir, "state.json.lock"),
		eventsPath:       join(homeDir, "events.jsonl"),
		lockTimeout:      DefaultLockTimeout,
		eventLineCeiling: eventLineCeiling,
	}
}

// WithLockTimeout overrides the default 5s bound, mainly for tests that
// want to exercise the lock-timeout safe-full path deterministically.
func (s *Store) WithLockTimeout(d time.Duration) *Store {
	s.lockTimeout = d
	return s
}

// Transform is a pure function over DaemonState, returning the updated
// state plus an optional event to append, or an error to abort the
// transaction (no write, no event).
type Transform func(*model.DaemonState) (*model.DaemonState, *Event, error)

// update runs fn under the exclusive state lock: read, transform, write,
// then append the returned event once the lock is released (events are
// outside the critical section deliberately — §5 forbids holding the
// state lock across I/O other than the write itself, and the event log
// has its own lock).
func (s *Store) update(ctx context.Context, fn Transform) error {
	if err := ensureDir(s.homeDir); err != nil {
		return fmt.Errorf("ensure home dir: %w", err)
	}

	fl := flock.New(s.lockPath)
	release, err := acquireExclusive(ctx, fl, s.lockTimeout)
	if err != nil {
		return err
	}

	st, err := s.readState()
	if err != nil {
		release()
		return err
	}

	newSt, ev, txErr := fn(st)
	if txErr != nil {
		release()
		return txErr
	}

	writeErr := s.writeState(newSt)
	release()
	if writeErr != nil {
		return fmt.Errorf("write state: %w", writeErr)
	}

	if ev != nil {
		if err := s.appendEvent(*ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	return nil
}

// Init creates or upgrades the blob, recording this process's pid and
// start time.
func (s *Store) Init(ctx context.Context, cfg model.RuntimeConfig) error {
	return s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		d.PID = os.Getpid()
		d.StartedAt = time.Now().UTC()
		d.Config = cfg
		return d, &Event{Type: "daemon.init", Fields: map[string]any{"pid": d.PID}}, nil
	})
}

// AddQueued enqueues issueID (idempotent: re-adding an already-queued or
// already-active id is a no-op, preserving P2 exclusivity).
func (s *Store) AddQueued(ctx context.Context, issueID int64, priority bool) error {
	return s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		if d.IsQueued(issueID) || d.IsActive(issueID) {
			return d, nil, nil
		}
		d.Queued = append(d.Queued, model.QueueEntry{IssueID: issueID, Priority: priority})
		return d, &Event{Type: "daemon.enqueue", Fields: map[string]any{"issue_id": issueID, "priority": priority}}, nil
	})
}

// PopQueued removes and returns the next issue id to admit: a priority-
// tagged entry jumps ahead of non-priority entries; ties broken FIFO
// within each lane. Returns (0, false, nil) when the queue is empty.
func (s *Store) PopQueued(ctx context.Context) (int64, bool, error) {
	var popped int64
	var ok bool
	err := s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		if len(d.Queued) == 0 {
			return d, nil, nil
		}
		idx := 0
		for i, e := range d.Queued {
			if e.Priority {
				idx = i
				break
			}
		}
		entry := d.Queued[idx]
		d.Queued = append(d.Queued[:idx], d.Queued[idx+1:]...)
		popped, ok = entry.IssueID, true
		return d, &Event{Type: "daemon.dequeue", Fields: map[string]any{"issue_id": entry.IssueID, "priority": entry.Priority}}, nil
	})
	return popped, ok, err
}

// AdmitRejectReason enumerates why Admit refused a job.
type AdmitRejectReason string

const (
	RejectCapacityFull    AdmitRejectReason = "capacity_full"
	RejectPriorityLaneFull AdmitRejectReason = "priority_lane_full"
	RejectAlreadyActive   AdmitRejectReason = "already_active"
	RejectBlacklisted     AdmitRejectReason = "retry_blacklisted"
)

// AdmitResult reports the outcome of an Admit call.
type AdmitResult struct {
	Admitted bool
	Reason   AdmitRejectReason
}

// Admit checks every DaemonState invariant atomically (spec.md §3
// invariants 1, 2, 4, 5) and, if satisfied, moves job from queued (if
// present) into ActiveJobs.
func (s *Store) Admit(ctx context.Context, job model.Job, maxParallel, priorityLaneCap, maxRetries int) (AdmitResult, error) {
	var result AdmitResult
	err := s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		if d.IsActive(job.IssueID) {
			result = AdmitResult{Admitted: false, Reason: RejectAlreadyActive}
			return d, nil, nil
		}
		if d.RetryCounts[job.IssueID] > maxRetries {
			result = AdmitResult{Admitted: false, Reason: RejectBlacklisted}
			return d, nil, nil
		}
		if len(d.ActiveJobs) >= maxParallel {
			result = AdmitResult{Admitted: false, Reason: RejectCapacityFull}
			return d, nil, nil
		}
		if job.Priority && len(d.PriorityLaneActive) >= priorityLaneCap {
			result = AdmitResult{Admitted: false, Reason: RejectPriorityLaneFull}
			return d, nil, nil
		}

		for i, e := range d.Queued {
			if e.IssueID == job.IssueID {
				d.Queued = append(d.Queued[:i], d.Queued[i+1:]...)
				break
			}
		}

		job.Status = model.JobAdmitted
		d.ActiveJobs = append(d.ActiveJobs, job)
		if job.Priority {
			d.PriorityLaneActive = append(d.PriorityLaneActive, job.IssueID)
		}
		result = AdmitResult{Admitted: true}
		return d, &Event{Type: "daemon.admit", Fields: map[string]any{
			"issue_id": job.IssueID, "template": job.Template, "score": job.Score, "priority": job.Priority,
		}}, nil
	})
	return result, err
}

// Complete moves issueID from ActiveJobs to Completed and releases its
// priority slot if held. The Progress Monitor's per-job tracking is not
// touched here; the caller clears it separately.
func (s *Store) Complete(ctx context.Context, issueID int64, outcome model.Outcome) error {
	return s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		idx := d.IndexOfActive(issueID)
		if idx < 0 {
			return d, nil, shipwrighterr.New(shipwrighterr.KindValidation, "statestore",
				fmt.Sprintf("complete: issue %d is not active", issueID), nil)
		}
		d.ActiveJobs = append(d.ActiveJobs[:idx], d.ActiveJobs[idx+1:]...)
		for i, id := range d.PriorityLaneActive {
			if id == issueID {
				d.PriorityLaneActive = append(d.PriorityLaneActive[:i], d.PriorityLaneActive[i+1:]...)
				break
			}
		}
		d.AppendCompleted(outcome)
		if outcome.Status == model.JobFailed {
			d.RetryCounts[issueID]++
		} else {
			delete(d.RetryCounts, issueID)
		}
		return d, &Event{Type: "daemon.complete", Fields: map[string]any{
			"issue_id": issueID, "status": string(outcome.Status), "duration_s": outcome.Duration.Seconds(),
		}}, nil
	})
}

// RecordFailure appends a failure signature to the bounded ring, used by
// Triage's memory signal and by backoff bookkeeping.
func (s *Store) RecordFailure(ctx context.Context, rec model.FailureRecord) error {
	return s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		d.AppendFailure(rec)
		return d, &Event{Type: "daemon.failure_recorded", Fields: map[string]any{
			"issue_id": rec.IssueID, "signature": rec.Signature,
		}}, nil
	})
}

// ActiveCountLocked returns len(ActiveJobs), or maxParallel (the safe-full
// sentinel, spec.md P9) if the lock could not be acquired within bound.
func (s *Store) ActiveCountLocked(ctx context.Context, maxParallel int) int {
	fl := flock.New(s.lockPath)
	release, err := acquireExclusive(ctx, fl, s.lockTimeout)
	if err != nil {
		return maxParallel
	}
	defer release()

	st, err := s.readState()
	if err != nil {
		return maxParallel
	}
	return len(st.ActiveJobs)
}

// Snapshot returns a read-only copy of the current DaemonState for
// dashboards/CLI status. A lock-timeout here returns a nil state and the
// lock-timeout error, so callers must treat a non-nil error as "no
// snapshot available".
func (s *Store) Snapshot(ctx context.Context) (*model.DaemonState, error) {
	fl := flock.New(s.lockPath)
	release, err := acquireExclusive(ctx, fl, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.readState()
}

// EmitEvent appends a structured event outside of any state transaction,
// for components (Triage, Progress Monitor) that need to log without
// mutating DaemonState.
func (s *Store) EmitEvent(eventType string, fields map[string]any) error {
	if err := ensureDir(s.homeDir); err != nil {
		return err
	}
	return s.appendEvent(Event{Type: eventType, Fields: fields})
}

// UpdateJobField is a narrow transaction for Runner/Progress Monitor
// updates to a single active job's stage/iteration without round-tripping
// the whole admit/complete lifecycle.
func (s *Store) UpdateJobField(ctx context.Context, issueID int64, mutate func(*model.Job)) error {
	return s.update(ctx, func(d *model.DaemonState) (*model.DaemonState, *Event, error) {
		idx := d.IndexOfActive(issueID)
		if idx < 0 {
			return d, nil, shipwrighterr.New(shipwrighterr.KindValidation, "statestore",
				fmt.Sprintf("update: issue %d is not active", issueID), nil)
		}
		mutate(&d.ActiveJobs[idx])
		return d, nil, nil
	})
}

// SetPauseMarker writes <home>/pause.json; presence blocks new admissions
// (spec.md §5, §6).
func (s *Store) SetPauseMarker(reason string) error {
	return writePauseMarker(s.homeDir, reason)
}

// ClearPauseMarker removes the pause marker, resuming admissions.
func (s *Store) ClearPauseMarker() error {
	return os.Remove(join(s.homeDir, "pause.json"))
}

// IsPaused reports whether a pause marker is present.
func (s *Store) IsPaused() (bool, *PauseMarker) {
	return readPauseMarker(s.homeDir)
}
