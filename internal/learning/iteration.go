package learning

import "path/filepath"

// IterationModel persists per-context recommended cycle counts
// (spec.md §3: "iteration-model: per-context recommended cycle count"),
// consulted by the adaptive cycle limit (spec.md §4.3).
type IterationModel struct {
	path string
}

// NewIterationModel opens iteration-model.json rooted at homeDir.
func NewIterationModel(homeDir string) *IterationModel {
	return &IterationModel{path: filepath.Join(homeDir, "optimization", "iteration-model.json")}
}

type iterationEntry struct {
	RecommendedCycles int `json:"recommended_cycles"`
	Samples           int `json:"samples"`
}

// Recommend returns the learned recommended cycle count for context, or
// (0, false) if no data exists yet — callers must fall back to the
// template's base cycle count (spec.md §9).
func (m *IterationModel) Recommend(context string) (int, bool) {
	entries := make(map[string]iterationEntry)
	if !readJSON(m.path, &entries) {
		return 0, false
	}
	e, ok := entries[context]
	if !ok || e.Samples == 0 {
		return 0, false
	}
	return e.RecommendedCycles, true
}

// Observe records an actual cycle count used for context, updating the
// running average recommendation.
func (m *IterationModel) Observe(context string, cyclesUsed int) error {
	entries := make(map[string]iterationEntry)
	readJSON(m.path, &entries)

	e := entries[context]
	if e.Samples == 0 {
		e.RecommendedCycles = cyclesUsed
	} else {
		// incremental running average
		e.RecommendedCycles = (e.RecommendedCycles*e.Samples + cyclesUsed) / (e.Samples + 1)
	}
	e.Samples++
	entries[context] = e

	return writeJSONAtomic(m.path, entries)
}
