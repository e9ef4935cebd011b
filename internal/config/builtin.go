package config

import "time"

// GetBuiltinTemplates returns Shipwright's built-in pipeline templates,
// merged with (and overridable by) user YAML the way the teacher's
// GetBuiltinConfig() merges built-in agents/chains with user overrides
// (pkg/config/builtin.go).
func GetBuiltinTemplates() map[string]TemplateConfig {
	defaultCommands := CommandsConfig{
		Build:    "go build ./...",
		Test:     "go test ./...",
		Deploy:   "echo no-op deploy",
		Validate: "echo no-op validate",
		Monitor:  "echo no-op monitor",
	}
	return map[string]TemplateConfig{
		"fast": {
			Name:                "fast",
			BaseCycles:          1,
			QualityThreshold:    60,
			AuditIntensity:      "minimal",
			SkipCompoundQuality: true,
			MaxIterations:       3,
			MergeStrategy:       "squash",
			Commands:            defaultCommands,
		},
		"standard": {
			Name:             "standard",
			BaseCycles:       2,
			QualityThreshold: 70,
			AuditIntensity:   "standard",
			MaxIterations:    5,
			MergeStrategy:    "squash",
			Commands:         defaultCommands,
		},
		"full": {
			Name:             "full",
			BaseCycles:       3,
			QualityThreshold: 80,
			AuditIntensity:   "full",
			MaxIterations:    8,
			MergeStrategy:    "merge",
			Commands:         defaultCommands,
		},
		"enterprise": {
			Name:             "enterprise",
			Conservative:     true,
			BaseCycles:       4,
			QualityThreshold: 85,
			AuditIntensity:   "full",
			MaxIterations:    10,
			MergeStrategy:    "merge",
			Commands:         defaultCommands,
			EnableTestFirst:  true,
		},
		"hotfix": {
			Name:                "hotfix",
			BaseCycles:          1,
			QualityThreshold:    50,
			AuditIntensity:      "minimal",
			SkipCompoundQuality: true,
			MaxIterations:       2,
			MergeStrategy:       "squash",
			Commands:            defaultCommands,
		},
	}
}

// DefaultSystemConfig returns the system-wide defaults applied before
// environment-variable and YAML overrides (spec.md §6 env var table).
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		WatchLabel:          "shipwright",
		MaxParallel:         3,
		PriorityLaneCap:     1,
		PollInterval:        60 * time.Second,
		MaxRetries:          3,
		AutoTemplate:        false,
		DefaultTemplate:     "standard",
		AdaptiveThresholds:  false,
		EventLogLineCeiling: 50000,
		Triage: &TriageConfig{
			DORAWindow:            5,
			ConservativeThreshold: 0.40,
			FastCFRThreshold:      0.10,
			FastScoreThreshold:    60,
		},
	}
}
