package statestore

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// PauseMarker is the contents of pause.json: presence blocks admission
// (spec.md §5 cancellation, §6 file layout).
type PauseMarker struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func writePauseMarker(homeDir, reason string) error {
	if err := ensureDir(homeDir); err != nil {
		return err
	}
	marker := PauseMarker{Reason: reason, Timestamp: time.Now().UTC()}
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	tmp := join(homeDir, "pause.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, join(homeDir, "pause.json"))
}

func readPauseMarker(homeDir string) (bool, *PauseMarker) {
	data, err := os.ReadFile(join(homeDir, "pause.json"))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, nil
	}
	var marker PauseMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return true, nil
	}
	return true, &marker
}
