// Package config loads and validates Shipwright's YAML configuration:
// pipeline templates, label-map overrides, and system-wide settings. It
// mirrors the teacher's layered load→merge→default→validate pipeline
// (codeready-toolchain/tarsy's pkg/config), adapted from agent/chain/MCP
// configuration to pipeline-template configuration.
package config

import "time"

// TemplateConfig is one named pipeline configuration: which audits run at
// what intensity, and the thresholds that gate compound_quality and merge.
type TemplateConfig struct {
	Name               string        `yaml:"name"`
	Conservative       bool          `yaml:"conservative,omitempty"`
	BaseCycles         int           `yaml:"base_cycles" validate:"min=1"`
	QualityThreshold   int           `yaml:"quality_threshold" validate:"min=40,max=100"`
	AuditIntensity     string        `yaml:"audit_intensity"` // "minimal" | "standard" | "full"
	SkipCompoundQuality bool         `yaml:"skip_compound_quality,omitempty"`
	MaxIterations      int           `yaml:"max_iterations" validate:"min=1"`
	MergeStrategy      string        `yaml:"merge_strategy"` // "squash" | "merge" | "rebase"
	Commands           CommandsConfig `yaml:"commands,omitempty"`
	EnableTestFirst    bool          `yaml:"enable_test_first,omitempty"`
}

// CommandsConfig names the shell commands each content-bearing stage
// shells out to (spec.md §1: "content of individual build/test/deploy
// steps (these are shell commands named in config)" is explicitly out of
// scope for this spec to define — only the hook to invoke them is in
// scope).
type CommandsConfig struct {
	Build    string `yaml:"build,omitempty"`
	Test     string `yaml:"test,omitempty"`
	Deploy   string `yaml:"deploy,omitempty"`
	Validate string `yaml:"validate,omitempty"`
	Monitor  string `yaml:"monitor,omitempty"`
}

// LabelMapEntry is a user-supplied regex → template override
// (spec.md §4.2 template selection step 4).
type LabelMapEntry struct {
	Pattern  string `yaml:"pattern"`
	Template string `yaml:"template"`
}

// GitHubConfig configures the tracker/code-host integration.
type GitHubConfig struct {
	TokenEnv string `yaml:"token_env"`
}

// DashboardConfig configures the optional peer-coordination dashboard.
type DashboardConfig struct {
	URL string `yaml:"url,omitempty"`
}

// TriageConfig tunes the Triage Engine (spec.md §9 open question: DORA window).
type TriageConfig struct {
	DORAWindow           int `yaml:"dora_window" validate:"min=1"`
	ConservativeThreshold float64 `yaml:"conservative_cfr_threshold"`
	FastCFRThreshold      float64 `yaml:"fast_cfr_threshold"`
	FastScoreThreshold    int     `yaml:"fast_score_threshold"`
}

// SystemConfig groups daemon-wide infrastructure settings.
type SystemConfig struct {
	WatchLabel           string          `yaml:"watch_label"`
	MaxParallel          int             `yaml:"max_parallel" validate:"min=1"`
	PriorityLaneCap      int             `yaml:"priority_lane_cap" validate:"min=0"`
	PriorityLaneLabels   []string        `yaml:"priority_lane_labels"`
	PollInterval         time.Duration   `yaml:"poll_interval"`
	MaxRetries           int             `yaml:"max_retries" validate:"min=0"`
	AutoTemplate         bool            `yaml:"auto_template"`
	DefaultTemplate      string          `yaml:"default_template"`
	AdaptiveThresholds   bool            `yaml:"adaptive_thresholds_enabled"`
	NoGitHub             bool            `yaml:"no_github"`
	CIMode               bool            `yaml:"ci_mode"`
	GitHub               *GitHubConfig   `yaml:"github,omitempty"`
	Dashboard            *DashboardConfig `yaml:"dashboard,omitempty"`
	Triage               *TriageConfig   `yaml:"triage,omitempty"`
	EventLogLineCeiling  int             `yaml:"event_log_line_ceiling" validate:"min=100"`
	HomeDir              string          `yaml:"home_dir,omitempty"`
}

// ShipwrightYAMLConfig mirrors the top-level shipwright.yaml file shape.
type ShipwrightYAMLConfig struct {
	System    *SystemConfig              `yaml:"system"`
	Templates map[string]TemplateConfig  `yaml:"templates"`
	LabelMap  []LabelMapEntry            `yaml:"label_map"`
}

// Config is the fully resolved, validated configuration returned by
// Initialize, ready for use by every component.
type Config struct {
	configDir string
	System    *SystemConfig
	Templates *TemplateRegistry
	LabelMap  []LabelMapEntry
}

// ConfigDir returns the directory this configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// Stats summarizes the loaded configuration, surfaced on health/status
// endpoints the way the teacher's Config.Stats() does.
type Stats struct {
	Templates int
	LabelMapEntries int
}

// Stats returns a snapshot of configuration size.
func (c *Config) Stats() Stats {
	return Stats{
		Templates:       c.Templates.Len(),
		LabelMapEntries: len(c.LabelMap),
	}
}
