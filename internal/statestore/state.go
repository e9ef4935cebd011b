package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
)

// readState loads the DaemonState blob, falling back to the sibling .bak on
// a parse failure, and to a fresh zero-value state if neither exists yet
// (first run). A .bak that also fails to parse is fatal (spec.md §7 kind 6).
func (s *Store) readState() (*model.DaemonState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewDaemonState(), nil
	}
	if err != nil {
		return nil, err
	}

	var st model.DaemonState
	if err := json.Unmarshal(data, &st); err == nil {
		return &st, nil
	}

	bak, bakErr := os.ReadFile(s.bakPath)
	if bakErr != nil {
		return nil, shipwrighterr.New(shipwrighterr.KindStateCorruption, "statestore",
			"state.json is corrupt and no backup exists", bakErr)
	}
	var bakSt model.DaemonState
	if err := json.Unmarshal(bak, &bakSt); err != nil {
		return nil, shipwrighterr.New(shipwrighterr.KindStateCorruption, "statestore",
			"state.json and .bak are both corrupt", err)
	}
	return &bakSt, nil
}

// writeState persists st atomically: marshal, write to a sibling temp file,
// fsync, rename over the target. The previous good blob is preserved as
// .bak before the rename so a crash mid-write never loses the last-known-
// good copy (spec.md P8).
func (s *Store) writeState(st *model.DaemonState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if existing, err := os.ReadFile(s.path); err == nil {
		_ = os.WriteFile(s.bakPath, existing, 0o644)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp state file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func join(home string, parts ...string) string {
	all := append([]string{home}, parts...)
	return filepath.Join(all...)
}
