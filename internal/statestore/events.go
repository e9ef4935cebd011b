package statestore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Event is one append-only event-log entry (spec.md §6 event-log schema):
// ts (ISO-8601), ts_epoch (seconds), a dotted type name, plus typed payload
// fields.
type Event struct {
	Type   string
	Fields map[string]any
}

// appendEvent serializes ev as one JSON line and appends it under a simple
// advisory syscall.Flock exclusive lock — grounded on agentops's
// flockLeaseFile/inbox.go append idiom. Unlike the state blob's bounded
// read-modify-write, this is a pure append: it blocks rather than timing
// out, since event loss is worse than a brief stall (spec.md P4: ts_epoch
// must be non-decreasing, which a blocking append guarantees under a
// single writer-at-a-time discipline).
func (s *Store) appendEvent(ev Event) error {
	if ev.Fields == nil {
		ev.Fields = map[string]any{}
	}
	now := time.Now().UTC()
	line := map[string]any{
		"ts":       now.Format(time.RFC3339),
		"ts_epoch": now.Unix(),
		"type":     ev.Type,
	}
	for k, v := range ev.Fields {
		line[k] = v
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.eventsPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events log: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock events log: %w", err)
	}
	defer func() { _ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return s.rotateEventsLocked(f)
}

// rotateEventsLocked rotates events.jsonl to a .1 suffix once it exceeds the
// configured line ceiling. Must be called while the caller still holds the
// exclusive lock on f. Rotation happens synchronously on threshold
// (spec.md §9: "append-only logs → bounded rotation").
func (s *Store) rotateEventsLocked(f *os.File) error {
	if s.eventLineCeiling <= 0 {
		return nil
	}
	lines, err := countLines(f)
	if err != nil {
		return nil // advisory: never fail the append over a counting error
	}
	if lines <= s.eventLineCeiling {
		return nil
	}
	rotated := s.eventsPath + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(s.eventsPath, rotated); err != nil {
		return nil
	}
	// The caller's *os.File now refers to the renamed (rotated) inode,
	// which is fine: the next appendEvent call opens a fresh events.jsonl.
	return nil
}

func countLines(f *os.File) (int, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}
	defer f.Seek(0, 2) //nolint:errcheck // best-effort restore to end-of-file for append semantics

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}
