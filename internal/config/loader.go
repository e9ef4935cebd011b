package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load shipwright.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined templates and system config
//  5. Apply the spec.md §6 environment-variable overlay
//  6. Build the template registry
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"templates", stats.Templates,
		"label_map_entries", stats.LabelMapEntries)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userCfg, err := loader.loadShipwrightYAML()
	if err != nil {
		return nil, NewLoadError("shipwright.yaml", err)
	}

	templates, err := mergeTemplates(GetBuiltinTemplates(), userCfg.Templates)
	if err != nil {
		return nil, fmt.Errorf("failed to merge templates: %w", err)
	}

	sys, err := mergeSystemConfig(DefaultSystemConfig(), userCfg.System)
	if err != nil {
		return nil, fmt.Errorf("failed to merge system config: %w", err)
	}
	ApplyEnv(sys, os.Getenv)

	return &Config{
		configDir: configDir,
		System:    sys,
		Templates: NewTemplateRegistry(templates),
		LabelMap:  userCfg.LabelMap,
	}, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadShipwrightYAML() (*ShipwrightYAMLConfig, error) {
	var cfg ShipwrightYAMLConfig
	cfg.Templates = make(map[string]TemplateConfig)

	path := filepath.Join(l.configDir, "shipwright.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing user config is not fatal: built-ins and env vars
			// alone are enough to run.
			return &cfg, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if cfg.Templates == nil {
		cfg.Templates = make(map[string]TemplateConfig)
	}

	return &cfg, nil
}
