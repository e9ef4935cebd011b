// Package dashboard is Shipwright's read-mostly status/control HTTP API
// (spec.md §1 scope note: presentation surfaces are external, but the
// dashboard's job here is narrower — peer coordination and operator
// status/pause/resume, not a UI). Grounded on the teacher's
// cmd/tarsy/main.go gin.Default()+router.GET("/health", ...) wiring,
// generalized from a single health endpoint to the small status/control
// surface the Supervisor and operators need, plus a Prometheus /metrics
// endpoint exercising the kubernaut-class metrics dependency.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shipwright-run/shipwright/internal/statestore"
)

// Server exposes the daemon's state store over HTTP, read-mostly except
// for the pause/resume control endpoints.
type Server struct {
	Store   *statestore.Store
	Metrics *Metrics
	logger  *slog.Logger
}

// NewServer constructs a Server bound to store, registering metrics
// collectors against the default Prometheus registry.
func NewServer(store *statestore.Store) *Server {
	return &Server{
		Store:   store,
		Metrics: NewMetrics(),
		logger:  slog.With("component", "dashboard"),
	}
}

// Router builds the gin engine. gin.ReleaseMode is the caller's
// responsibility (set via GIN_MODE, matching the teacher's convention).
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/status", s.handleStatus)
	r.POST("/pause", s.handlePause)
	r.POST("/resume", s.handleResume)
	r.GET("/claims/:issueID", s.handleClaim)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type statusResponse struct {
	Paused        bool      `json:"paused"`
	PauseReason   string    `json:"pause_reason,omitempty"`
	ActiveJobs    int       `json:"active_jobs"`
	Queued        int       `json:"queued"`
	PriorityLane  int       `json:"priority_lane_active"`
	MaxParallel   int       `json:"max_parallel"`
	StartedAt     time.Time `json:"started_at"`
	LastPoll      time.Time `json:"last_poll"`
	DaemonPID     int       `json:"pid"`
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	paused, marker := s.Store.IsPaused()
	resp := statusResponse{
		Paused:       paused,
		ActiveJobs:   len(snap.ActiveJobs),
		Queued:       len(snap.Queued),
		PriorityLane: len(snap.PriorityLaneActive),
		MaxParallel:  snap.Config.MaxParallel,
		StartedAt:    snap.StartedAt,
		LastPoll:     snap.LastPoll,
		DaemonPID:    snap.PID,
	}
	if marker != nil {
		resp.PauseReason = marker.Reason
	}
	s.Metrics.Observe(snap, paused)
	c.JSON(http.StatusOK, resp)
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handlePause(c *gin.Context) {
	var req pauseRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "operator requested pause via dashboard"
	}
	if err := s.Store.SetPauseMarker(req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("daemon paused via dashboard", "reason", req.Reason)
	c.JSON(http.StatusOK, gin.H{"paused": true, "reason": req.Reason})
}

func (s *Server) handleResume(c *gin.Context) {
	if err := s.Store.ClearPauseMarker(); err != nil && !isNotExist(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("daemon resumed via dashboard")
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// handleClaim answers a peer's claim-arbitration consult (SPEC_FULL.md /
// spec.md §9 open question 2: "a dashboard-consult ... when set"). A host
// reports an issue as claimed if it currently holds it active or queued;
// this is the authoritative local answer a peer's last-writer-wins label
// read can't provide on its own.
func (s *Server) handleClaim(c *gin.Context) {
	issueID, err := parseIssueID(c.Param("issueID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issue id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	claimed := snap.IsActive(issueID) || snap.IsQueued(issueID)
	c.JSON(http.StatusOK, gin.H{"issue_id": issueID, "claimed": claimed})
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func parseIssueID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
