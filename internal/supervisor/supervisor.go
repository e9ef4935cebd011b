// Package supervisor drives the single long-lived event loop spec.md §4.5
// describes: pre-flight auth checks, rate-limit backoff, candidate fetch,
// triage+admit, spawn, reap, adapt. Grounded on the teacher's
// pkg/queue/pool.go Start/Stop/Health shape and pkg/queue/worker.go's
// select-on-stop-channel-vs-default-poll loop, generalized from a fixed
// DB-job-queue worker pool to Shipwright's tracker-sourced issue queue
// with triage-driven admission.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/dashboard"
	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/progress"
	"github.com/shipwright-run/shipwright/internal/shipwrighterr"
	"github.com/shipwright-run/shipwright/internal/statestore"
	"github.com/shipwright-run/shipwright/internal/tracker"
	"github.com/shipwright-run/shipwright/internal/triage"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// JobLauncher spawns one admitted job as an isolated subprocess and
// returns its pid (spec.md §4.5 step 5, §5: "each admitted job is an
// isolated subprocess, not an in-process task"). SelfExecLauncher is the
// production implementation; tests substitute a fake.
type JobLauncher func(job model.Job, worktree string) (pid int, err error)

// SelfExecLauncher re-execs the running binary with the hidden run-job
// subcommand cmd/shipwright registers, passing the job's identity as
// flags. Grounded on the self-reexec pattern common to single-binary Go
// daemons (the teacher itself has no subprocess-fork path to imitate
// directly, since tarsy's agents run in-process).
func SelfExecLauncher(extraArgs ...string) JobLauncher {
	return func(job model.Job, worktree string) (int, error) {
		self, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("resolve self binary: %w", err)
		}
		args := append([]string{
			"__run-job",
			"--issue", fmt.Sprintf("%d", job.IssueID),
			"--template", job.Template,
			"--worktree", worktree,
		}, extraArgs...)
		cmd := exec.Command(self, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return 0, fmt.Errorf("start job subprocess: %w", err)
		}
		go func() { _ = cmd.Wait() }() // reap() polls liveness independently; this only prevents a zombie
		return cmd.Process.Pid, nil
	}
}

// Supervisor holds every collaborator one event-loop tick needs.
type Supervisor struct {
	Store    *statestore.Store
	Config   *config.Config
	Tracker  tracker.Tracker
	Executor executor.Executor
	Triage   *triage.Engine
	Monitor  *progress.Monitor
	Quality  *learning.QualityScores
	Pipeline *learning.DurationTable
	Launch   JobLauncher
	HomeDir  string
	Tuning   *learning.DaemonTuning

	breaker             *gobreaker.CircuitBreaker[any]
	consecutiveFailures int
	lastPreflight       time.Time
	pollInterval        time.Duration
	emptyPollStreak     int
	logger              *slog.Logger
}

// New constructs a Supervisor ready to Tick. It loads daemon-tuning.json
// so a restarted daemon resumes from its last adapted poll interval
// instead of the static 60s default (spec.md §4.5 step 7).
func New(store *statestore.Store, cfg *config.Config, tr tracker.Tracker, exec executor.Executor,
	eng *triage.Engine, mon *progress.Monitor, quality *learning.QualityScores, pipelineDurations *learning.DurationTable,
	launch JobLauncher, homeDir string) *Supervisor {
	tuning := learning.NewDaemonTuning(homeDir)
	pollInterval := 60 * time.Second
	if saved := tuning.Load(); saved.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(saved.PollIntervalSeconds * float64(time.Second))
	}
	return &Supervisor{
		Store: store, Config: cfg, Tracker: tr, Executor: exec, Triage: eng, Monitor: mon,
		Quality: quality, Pipeline: pipelineDurations, Launch: launch, HomeDir: homeDir, Tuning: tuning,
		breaker:      NewTrackerBreaker(),
		pollInterval: pollInterval,
		logger:       slog.With("component", "supervisor"),
	}
}

// Run ticks every s.pollInterval (adapted each cycle per step 7) until ctx
// is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		if err := s.Tick(ctx); err != nil {
			s.logger.Error("tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
}

// Tick runs one full event-loop iteration (spec.md §4.5).
func (s *Supervisor) Tick(ctx context.Context) error {
	if s.preflightDue() {
		if err := s.preflight(ctx); err != nil {
			s.logger.Warn("preflight failed, pausing admissions", "error", err)
			return s.Store.SetPauseMarker(err.Error())
		}
		_ = s.Store.ClearPauseMarker()
	}

	paused, marker := s.Store.IsPaused()
	if paused {
		s.logger.Debug("admissions paused", "reason", marker.Reason)
		s.reap(ctx)
		return nil
	}

	candidates, err := s.fetchWithBreaker(ctx)
	if err != nil {
		s.recordTrackerFailure()
		return fmt.Errorf("fetch candidates: %w", err)
	}
	s.consecutiveFailures = 0

	cfg := s.runtimeConfig()
	if cfg.DashboardURL != "" {
		candidates = FilterDashboardClaims(ctx, dashboard.NewPeerClient(cfg.DashboardURL), candidates)
	}
	for _, issue := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.triageAndAdmit(ctx, issue, cfg)
	}

	s.reap(ctx)
	s.adapt(len(candidates))
	return nil
}

func (s *Supervisor) preflightDue() bool {
	return time.Since(s.lastPreflight) >= 5*time.Minute
}

// preflight runs bounded auth checks against the tracker and executor
// (spec.md §4.5 step 1).
func (s *Supervisor) preflight(ctx context.Context) error {
	s.lastPreflight = time.Now()

	if p, ok := s.Tracker.(interface{ Probe(context.Context) error }); ok {
		if err := p.Probe(ctx); err != nil {
			return fmt.Errorf("tracker auth check: %w", err)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, tracker.DefaultAuthProbeTimeout)
	defer cancel()
	if err := s.Executor.Probe(probeCtx); err != nil {
		return fmt.Errorf("executor auth check: %w", err)
	}
	return nil
}

// fetchWithBreaker wraps FetchCandidates in the tracker circuit breaker
// (spec.md §4.5 step 2).
func (s *Supervisor) fetchWithBreaker(ctx context.Context) ([]model.Issue, error) {
	if wait := BackoffFor(s.consecutiveFailures); wait > 0 {
		s.logger.Debug("tracker backoff active", "wait", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	result, err := s.breaker.Execute(func() (any, error) {
		return FetchCandidates(ctx, s.Tracker, s.runtimeConfig().WatchLabel)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.Issue), nil
}

func (s *Supervisor) recordTrackerFailure() {
	s.consecutiveFailures++
	if s.consecutiveFailures >= 3 {
		_ = s.Store.EmitEvent("daemon.rate_limit", map[string]any{
			"failures": s.consecutiveFailures, "backoff_s": int(BackoffFor(s.consecutiveFailures).Seconds()),
		})
	}
}

func (s *Supervisor) runtimeConfig() model.RuntimeConfig {
	if s.Config == nil || s.Config.System == nil {
		return model.RuntimeConfig{PollInterval: 60 * time.Second, MaxParallel: 3, WatchLabel: "shipwright"}
	}
	sys := s.Config.System
	rc := model.RuntimeConfig{
		PollInterval:    sys.PollInterval,
		MaxParallel:     sys.MaxParallel,
		WatchLabel:      sys.WatchLabel,
		PriorityLaneCap: sys.PriorityLaneCap,
	}
	if sys.Dashboard != nil {
		rc.DashboardURL = sys.Dashboard.URL
	}
	return rc
}

// triageAndAdmit scores one candidate, selects its template, and admits
// it up to capacity (spec.md §4.5 step 4).
func (s *Supervisor) triageAndAdmit(ctx context.Context, issue model.Issue, cfg model.RuntimeConfig) {
	if s.Triage == nil {
		return
	}

	branch := triage.BranchProtection{}
	if bp, err := s.Tracker.BranchProtection(ctx, "", "main"); err == nil {
		branch = triage.BranchProtection{RequiredReviews: bp.RequiredReviews, EnforceAdmins: bp.EnforceAdmins}
	}

	quality := triage.QualityMemory{}
	weights := map[string]triage.TemplateWeight{}
	if s.Quality != nil {
		if avg, critical, ok := s.Quality.RecentAverage(cfg.WatchLabel, 10); ok {
			quality = triage.QualityMemory{AverageScore: avg, RecentCritical: critical, HasData: true}
		}
		for name, w := range s.Quality.Weights() {
			weights[name] = triage.TemplateWeight{SampleSize: w.SampleSize, SuccessRate: w.SuccessRate}
		}
	}

	result, err := s.Triage.Triage(ctx, triage.TriageInput{
		Issue: issue, Now: time.Now().UTC(), Branch: branch, Quality: quality, Weights: weights,
	})
	if err != nil {
		if shipwrighterr.Is(err, shipwrighterr.KindUnscoreable) {
			s.logger.Warn("issue unscoreable, skipping this cycle", "issue_id", issue.ID, "error", err)
			return
		}
		s.logger.Error("triage failed", "issue_id", issue.ID, "error", err)
		return
	}

	_ = s.Store.EmitEvent("daemon.triage", map[string]any{
		"issue_id": issue.ID, "score": result.Score, "template": result.Template, "complexity": result.Complexity,
	})

	isPriority := issue.HasAnyLabel(cfg.WatchLabel, "priority")
	job := model.Job{
		IssueID: issue.ID, Template: result.Template, Score: result.Score,
		Complexity: result.Complexity, Stage: model.StageIntake, Status: model.JobQueued, Priority: isPriority,
	}

	admitResult, err := s.Store.Admit(ctx, job, cfg.MaxParallel, cfg.PriorityLaneCap, defaultMaxRetries)
	if err != nil {
		s.logger.Error("admit failed", "issue_id", issue.ID, "error", err)
		return
	}
	if !admitResult.Admitted {
		_ = s.Store.AddQueued(ctx, issue.ID, isPriority)
		return
	}

	s.spawn(ctx, job)
}

const defaultMaxRetries = 3

// spawn creates the job's worktree and forks its Runner subprocess
// (spec.md §4.5 step 5).
func (s *Supervisor) spawn(ctx context.Context, job model.Job) {
	worktree := fmt.Sprintf("%s/worktrees/%d", s.HomeDir, job.IssueID)
	if err := os.MkdirAll(worktree, 0o755); err != nil {
		s.logger.Error("worktree create failed", "issue_id", job.IssueID, "error", err)
		return
	}
	_ = ClaimIssue(ctx, s.Tracker, job.IssueID)

	pid, err := s.Launch(job, worktree)
	if err != nil {
		s.logger.Error("spawn failed", "issue_id", job.IssueID, "error", err)
		return
	}
	_ = s.Store.UpdateJobField(ctx, job.IssueID, func(j *model.Job) {
		j.PID = pid
		j.Worktree = worktree
		j.Status = model.JobRunning
		j.StartedAt = time.Now().UTC()
	})
}

// maxReapConcurrency bounds how many exited jobs' worktrees reap()
// inspects (a process signal + a pipeline-state read each) at once, so a
// large active-job set doesn't serialize one disk read after another.
const maxReapConcurrency = 8

// exitInfo is one exited job's classified outcome, computed off the
// store's write path so the concurrent inspection pass below never
// touches the state store itself.
type exitInfo struct {
	job     model.Job
	status  model.JobStatus
	reason  string
	quality int
}

// reap collects exited jobs, records their outcome, and releases their
// claim label (spec.md §4.5 step 6). The inspection pass (liveness check
// + pipeline-state read per job) runs concurrently, bounded by a
// semaphore; the store writes that follow run sequentially since the
// store already serializes them internally via its file lock.
func (s *Supervisor) reap(ctx context.Context) {
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return
	}

	sem := semaphore.NewWeighted(maxReapConcurrency)
	var mu sync.Mutex
	var exited []exitInfo

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range snap.ActiveJobs {
		job := job
		if job.PID == 0 || processAlive(job.PID) {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			info := exitInfo{job: job, status: model.JobFailed, reason: "runner exited without a terminal stage"}
			if state := readPipelineState(job.Worktree); state != nil {
				if last := lastStage(state); last == model.StagePR || last == model.StageMerge ||
					last == model.StageDeploy || last == model.StageValidate || last == model.StageMonitor {
					info.status = model.JobSucceeded
					info.reason = ""
				}
				if state.Artifacts != nil {
					fmt.Sscanf(state.Artifacts["quality_score"], "%d", &info.quality)
				}
			}

			mu.Lock()
			exited = append(exited, info)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, info := range exited {
		outcome := model.Outcome{
			IssueID: info.job.IssueID, Template: info.job.Template, Status: info.status, Reason: info.reason,
			Duration: time.Since(info.job.StartedAt), QualityScore: info.quality, CompletedAt: time.Now().UTC(),
		}
		if err := s.Store.Complete(ctx, info.job.IssueID, outcome); err != nil {
			s.logger.Error("complete failed", "issue_id", info.job.IssueID, "error", err)
			continue
		}
		if info.status == model.JobFailed {
			_ = s.Store.RecordFailure(ctx, model.FailureRecord{IssueID: info.job.IssueID, Signature: info.reason, Timestamp: time.Now().UTC()})
		}
		if s.Pipeline != nil {
			_ = s.Pipeline.Record(info.job.Template, outcome.Duration)
		}
		s.Monitor.Clear(info.job.IssueID)
		_ = ReleaseClaim(ctx, s.Tracker, info.job.IssueID)
	}
}

// adapt recomputes the poll interval from the candidate-queue state
// (spec.md §4.5 step 7's poll-interval rule). Only the poll interval is
// adapted: heartbeat timeouts, the stale-pipeline timeout and patrol
// limits are not computed here or elsewhere, and the Progress Monitor
// uses its fixed Thresholds.
func (s *Supervisor) adapt(candidateCount int) {
	if candidateCount == 0 {
		s.emptyPollStreak++
	} else {
		s.emptyPollStreak = 0
	}

	switch {
	case s.emptyPollStreak >= 5:
		s.pollInterval = 120 * time.Second
	case candidateCount > 0:
		s.pollInterval = 30 * time.Second
	default:
		s.pollInterval = 60 * time.Second
	}

	if s.Tuning != nil {
		_ = s.Tuning.Save(learning.TuningState{
			PollIntervalSeconds:   s.pollInterval.Seconds(),
			ConsecutiveEmptyPolls: s.emptyPollStreak,
		})
	}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func lastStage(ps *model.PipelineState) model.StageID {
	if len(ps.Stages) == 0 {
		return ""
	}
	return ps.Stages[len(ps.Stages)-1].Stage
}

// ActiveJobs lists the running jobs the Progress Monitor should watch;
// pass as Monitor.Run's listActive argument.
func (s *Supervisor) ActiveJobs(ctx context.Context) []progress.ActiveJob {
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return nil
	}
	jobs := make([]progress.ActiveJob, 0, len(snap.ActiveJobs))
	for _, j := range snap.ActiveJobs {
		if j.PID == 0 {
			continue
		}
		jobs = append(jobs, progress.ActiveJob{IssueID: j.IssueID, PID: j.PID, Worktree: j.Worktree})
	}
	return jobs
}

// HandleProgressResponse applies the graduated response spec.md §4.4
// describes: a stalled verdict posts a warning comment, a stuck verdict
// kills the subprocess outright so reap() picks it up as a failure on the
// next tick. Pass as Monitor.Run's onResponse argument.
func (s *Supervisor) HandleProgressResponse(ctx context.Context, resp progress.Response) {
	switch resp.Verdict {
	case model.VerdictStalled:
		s.logger.Warn("job stalled", "issue_id", resp.IssueID, "message", resp.Message)
		_ = s.Tracker.Comment(ctx, resp.IssueID, "shipwright: "+resp.Message)
	case model.VerdictStuck:
		s.logger.Warn("job stuck, terminating", "issue_id", resp.IssueID, "message", resp.Message)
		_ = s.Tracker.Comment(ctx, resp.IssueID, "shipwright: "+resp.Message)
		_ = s.Store.EmitEvent("progress.killed", map[string]any{
			"issue_id": resp.IssueID, "reason": resp.Message,
		})
		snap, err := s.Store.Snapshot(ctx)
		if err != nil {
			return
		}
		for _, j := range snap.ActiveJobs {
			if j.IssueID == resp.IssueID && j.PID > 0 {
				if proc, err := os.FindProcess(j.PID); err == nil {
					_ = proc.Kill()
				}
			}
		}
	}
}
