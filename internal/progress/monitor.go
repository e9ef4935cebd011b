package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/vcs"
)

// ActiveJob is the minimal view of an admitted job the monitor needs;
// satisfied by model.Job.
type ActiveJob struct {
	IssueID  int64
	PID      int
	Worktree string
}

// Response is the Supervisor's graduated action for one job's verdict
// (spec.md §4.4: "Graduated response").
type Response struct {
	IssueID int64
	Verdict model.Verdict
	Message string
}

// Monitor runs the per-job snapshot/assess/verdict loop co-resident with
// the Supervisor. Grounded on pkg/queue/orphan.go's runOrphanDetection
// ticker shape and its per-item scan-and-act loop, translated from a
// single DB-backed orphan sweep to a richer per-job multi-signal verdict.
type Monitor struct {
	Interval   time.Duration
	Thresholds Thresholds
	VCSFactory func(worktree string) vcs.Client

	mu       sync.Mutex
	tracking map[int64]*jobTracking
	logger   *slog.Logger
}

// NewMonitor constructs a Monitor. vcsFactory lets callers substitute a
// fake in tests; NewGitClient(worktree) is the production default.
func NewMonitor(interval time.Duration, th Thresholds, vcsFactory func(string) vcs.Client) *Monitor {
	return &Monitor{
		Interval:   interval,
		Thresholds: th,
		VCSFactory: vcsFactory,
		tracking:   make(map[int64]*jobTracking),
		logger:     slog.With("component", "progress"),
	}
}

// Run ticks every Interval, invoking onTick with the current active job
// list and collecting verdicts, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, listActive func() []ActiveJob, onResponse func(Response)) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, job := range listActive() {
				resp := m.checkJob(ctx, job)
				if resp.Verdict != model.VerdictHealthy {
					onResponse(resp)
				}
			}
		}
	}
}

// checkJob runs one snapshot/assess/verdict cycle for a single job and
// updates its tracking state.
func (m *Monitor) checkJob(ctx context.Context, job ActiveJob) Response {
	var vcsClient vcs.Client
	if m.VCSFactory != nil {
		vcsClient = m.VCSFactory(job.Worktree)
	}

	snap := collectSnapshot(ctx, job.Worktree, vcsClient)
	consuming := job.PID > 0 && isConsumingCPU(ctx, job.PID)

	m.mu.Lock()
	t, ok := m.tracking[job.IssueID]
	if !ok {
		t = &jobTracking{}
		m.tracking[job.IssueID] = t
	}
	progressed := assess(t, snap, consuming)
	if progressed {
		t.noProgressCount = 0
	} else {
		t.noProgressCount++
	}
	t.ring = appendSnapshot(t.ring, snap)
	v := verdict(t, m.Thresholds)
	m.mu.Unlock()

	m.logger.Debug("progress check", "issue_id", job.IssueID, "verdict", v, "stage", snap.Stage)

	msg := ""
	switch v {
	case model.VerdictStalled:
		msg = "pipeline has stalled: no forward progress detected"
	case model.VerdictStuck:
		msg = "pipeline appears stuck and will be terminated"
	}

	return Response{IssueID: job.IssueID, Verdict: v, Message: msg}
}

// Clear drops tracking state for a completed or killed job (spec.md §4.4:
// "clear progress file" / "clear progress" on kill/completion).
func (m *Monitor) Clear(issueID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracking, issueID)
}
