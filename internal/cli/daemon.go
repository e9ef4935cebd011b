package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/shipwright-run/shipwright/internal/dashboard"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/progress"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/shipwright-run/shipwright/internal/supervisor"
	"github.com/shipwright-run/shipwright/internal/vcs"
	"github.com/spf13/cobra"
)

// pidFileName is the daemon's liveness marker, read by start (to refuse a
// double-start) and stop/status (to find the process).
const pidFileName = "daemon.pid"

func newDaemonCmd(gf *globalFlags) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "manage the Shipwright daemon process",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "start the daemon event loop in the foreground",
		RunE: func(c *cobra.Command, args []string) error {
			return runDaemonStart(c.Context(), *gf, listenAddr)
		},
	}
	start.Flags().StringVar(&listenAddr, "listen", ":8088", "dashboard HTTP listen address")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "signal a running daemon to shut down",
		RunE: func(c *cobra.Command, args []string) error {
			return runDaemonStop(*gf)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "print the daemon's current DaemonState snapshot",
		RunE: func(c *cobra.Command, args []string) error {
			return runDaemonStatus(c.Context(), *gf)
		},
	}

	pause := &cobra.Command{
		Use:   "pause [reason]",
		Short: "pause new-job admission",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			reason := "operator requested pause via CLI"
			if len(args) == 1 {
				reason = args[0]
			}
			return runDaemonPause(c.Context(), *gf, reason)
		},
	}

	resume := &cobra.Command{
		Use:   "resume",
		Short: "resume new-job admission",
		RunE: func(c *cobra.Command, args []string) error {
			return runDaemonResume(c.Context(), *gf)
		},
	}

	cmd.AddCommand(start, stop, status, pause, resume)
	return cmd
}

// runDaemonStart wires every collaborator into a Supervisor and runs its
// event loop in the foreground alongside the Progress Monitor and the
// dashboard HTTP server (spec.md §4.5, §9 open question 2), until the
// process receives a termination signal.
func runDaemonStart(ctx context.Context, gf globalFlags, listenAddr string) error {
	a, err := newApp(ctx, gf)
	if err != nil {
		return err
	}

	pidPath := filepath.Join(a.homeDir, pidFileName)
	if existing, perr := readPIDFile(pidPath); perr == nil && processAlive(existing) {
		return shipwrighterr.New(shipwrighterr.KindValidation, "cli.daemon", fmt.Sprintf("daemon already running (pid %d)", existing), nil)
	}
	if err := writePIDFile(pidPath, os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rc := model.RuntimeConfig{
		PollInterval:    a.cfg.System.PollInterval,
		MaxParallel:     a.cfg.System.MaxParallel,
		WatchLabel:      a.cfg.System.WatchLabel,
		PriorityLaneCap: a.cfg.System.PriorityLaneCap,
	}
	if a.cfg.System.Dashboard != nil {
		rc.DashboardURL = a.cfg.System.Dashboard.URL
	}
	if err := a.store.Init(ctx, rc); err != nil {
		return fmt.Errorf("init state store: %w", err)
	}

	sup := buildSupervisor(a)
	srv := dashboard.NewServer(a.store)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Router().Run(listenAddr); err != nil {
			slog.Error("dashboard server stopped", "error", err)
		}
	}()

	go sup.Monitor.Run(runCtx, func() []progress.ActiveJob { return sup.ActiveJobs(runCtx) },
		func(resp progress.Response) { sup.HandleProgressResponse(runCtx, resp) })

	slog.Info("shipwright daemon starting", "home", a.homeDir, "listen", listenAddr)
	sup.Run(runCtx)
	slog.Info("shipwright daemon stopped")
	return nil
}

func runDaemonStop(gf globalFlags) error {
	homeDir := gf.homeDir
	if homeDir == "" {
		homeDir = defaultHomeDir()
	}
	pid, err := readPIDFile(filepath.Join(homeDir, pidFileName))
	if err != nil {
		return shipwrighterr.New(shipwrighterr.KindValidation, "cli.daemon", "no running daemon found", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}
	fmt.Printf("sent SIGTERM to daemon pid %d\n", pid)
	return nil
}

func runDaemonStatus(ctx context.Context, gf globalFlags) error {
	a, err := newApp(ctx, gf)
	if err != nil {
		return err
	}
	snap, err := a.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	paused, marker := a.store.IsPaused()

	fmt.Printf("active jobs:    %d\n", len(snap.ActiveJobs))
	fmt.Printf("queued:         %d\n", len(snap.Queued))
	fmt.Printf("priority lane:  %d\n", len(snap.PriorityLaneActive))
	fmt.Printf("completed:      %d\n", len(snap.Completed))
	fmt.Printf("started at:     %s\n", snap.StartedAt.Format(time.RFC3339))
	fmt.Printf("last poll:      %s\n", snap.LastPoll.Format(time.RFC3339))
	if paused {
		fmt.Printf("paused:         true (%s)\n", marker.Reason)
	} else {
		fmt.Printf("paused:         false\n")
	}
	return nil
}

func runDaemonPause(ctx context.Context, gf globalFlags, reason string) error {
	a, err := newApp(ctx, gf)
	if err != nil {
		return err
	}
	if err := a.store.SetPauseMarker(reason); err != nil {
		return fmt.Errorf("set pause marker: %w", err)
	}
	fmt.Println("daemon paused:", reason)
	return nil
}

func runDaemonResume(ctx context.Context, gf globalFlags) error {
	a, err := newApp(ctx, gf)
	if err != nil {
		return err
	}
	if err := a.store.ClearPauseMarker(); err != nil {
		return fmt.Errorf("clear pause marker: %w", err)
	}
	fmt.Println("daemon resumed")
	return nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func writePIDFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// vcsFactory is the Progress Monitor's production VCSFactory, returning a
// git worktree client per active job.
func vcsFactory(worktree string) vcs.Client {
	return vcs.NewGitClient(worktree)
}

// buildSupervisor constructs a supervisor.Supervisor from app's already-
// loaded collaborators, wiring the self-exec job launcher.
func buildSupervisor(a *app) *supervisor.Supervisor {
	mon := progress.NewMonitor(30*time.Second, progress.DefaultThresholds, vcsFactory)
	return supervisor.New(a.store, a.cfg, a.tr, a.exec, a.triage, mon, a.quality, a.pipeline,
		supervisor.SelfExecLauncher(), a.homeDir)
}
