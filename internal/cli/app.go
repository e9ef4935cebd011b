// Package cli assembles Shipwright's cobra command tree (spec.md §6 "CLI
// surface"): daemon start|stop|status|pause|resume, pipeline start,
// triage show, regression baseline|check|report|history, hygiene
// platform-refactor, plus the hidden __run-job subcommand
// internal/supervisor.SelfExecLauncher re-execs into. Grounded on
// AbdelazizMoustafa10m/Raven and boshu2/agentops's cmd/<binary>/main.go +
// subcommand-per-file layout; deliberately does not adopt Raven's TUI
// stack (bubbletea/lipgloss/huh), since spec.md §1 puts presentation
// surfaces out of scope.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/statestore"
	"github.com/shipwright-run/shipwright/internal/tracker"
	"github.com/shipwright-run/shipwright/internal/triage"
)

// globalFlags are the persistent flags every subcommand shares.
type globalFlags struct {
	configDir string
	homeDir   string
}

func defaultConfigDir() string {
	if v := os.Getenv("CONFIG_DIR"); v != "" {
		return v
	}
	return "./config"
}

func defaultHomeDir() string {
	if v := os.Getenv("SHIPWRIGHT_HOME"); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".shipwright")
	}
	return "./.shipwright"
}

// loadDotEnv loads <configDir>/.env if present, matching cmd/tarsy's
// godotenv.Load convention. A missing file is not fatal.
func loadDotEnv(configDir string) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("no .env file loaded", "path", envPath, "error", err)
	}
}

// app bundles every collaborator a command needs once configuration is
// loaded: the state store, loaded config, tracker, executor, and learning
// tables. Built fresh per invocation (this is a CLI process, not the
// long-lived daemon).
type app struct {
	cfg      *config.Config
	store    *statestore.Store
	tr       tracker.Tracker
	exec     executor.Executor
	triage   *triage.Engine
	quality  *learning.QualityScores
	pipeline *learning.DurationTable
	stages   *learning.DurationTable
	iter     *learning.IterationModel
	homeDir  string
}

// newApp loads configuration and constructs every shared collaborator.
func newApp(ctx context.Context, gf globalFlags) (*app, error) {
	loadDotEnv(gf.configDir)

	cfg, err := config.Initialize(ctx, gf.configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	homeDir := gf.homeDir
	if homeDir == "" && cfg.System != nil && cfg.System.HomeDir != "" {
		homeDir = cfg.System.HomeDir
	}
	if homeDir == "" {
		homeDir = defaultHomeDir()
	}
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}

	ceiling := 50000
	if cfg.System != nil && cfg.System.EventLogLineCeiling > 0 {
		ceiling = cfg.System.EventLogLineCeiling
	}
	store := statestore.New(homeDir, ceiling)

	tr := buildTracker(cfg)
	exec := buildExecutor()

	quality := learning.NewQualityScores(homeDir, ceiling)
	eng := triage.NewEngine(cfg, triage.NewTrackerDependencyChecker(tr), nil)

	return &app{
		cfg:      cfg,
		store:    store,
		tr:       tr,
		exec:     exec,
		triage:   eng,
		quality:  quality,
		pipeline: learning.NewPipelineDurations(homeDir),
		stages:   learning.NewStageDurations(homeDir),
		iter:     learning.NewIterationModel(homeDir),
		homeDir:  homeDir,
	}, nil
}

// buildTracker selects the GitHub or offline tracker implementation
// (spec.md §6 NO_GITHUB env var).
func buildTracker(cfg *config.Config) tracker.Tracker {
	if cfg.System != nil && cfg.System.NoGitHub {
		return tracker.NewOfflineTracker()
	}
	if cfg.System != nil && cfg.System.GitHub != nil {
		owner, repo := os.Getenv("GITHUB_OWNER"), os.Getenv("GITHUB_REPO")
		token := os.Getenv(cfg.System.GitHub.TokenEnv)
		return tracker.NewGitHubTracker(owner, repo, token)
	}
	return tracker.NewOfflineTracker()
}

// buildExecutor constructs the opaque LLM-coding subprocess collaborator.
// SHIPWRIGHT_EXECUTOR_BIN names the binary (spec.md §6: "invoked as an
// opaque subprocess"); it defaults to "claude", matching the executor the
// reference pipeline drives.
func buildExecutor() executor.Executor {
	bin := os.Getenv("SHIPWRIGHT_EXECUTOR_BIN")
	if bin == "" {
		bin = "claude"
	}
	return executor.NewSubprocessExecutor(bin)
}
