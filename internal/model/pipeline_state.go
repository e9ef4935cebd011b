package model

import "time"

// StageRecord is one stage's status and timing within a job's PipelineState.
type StageRecord struct {
	Stage      StageID       `json:"stage"`
	Status     StageStatus   `json:"status"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Iterations int           `json:"iterations,omitempty"`
	Notes      string        `json:"notes,omitempty"`
}

// PipelineState is per-job state persisted in the job's worktree, independent
// of DaemonState (spec.md §3).
type PipelineState struct {
	IssueID           int64                  `json:"issue_id"`
	Template          string                 `json:"template"`
	Stages            []StageRecord          `json:"stages"`
	CurrentIteration  int                    `json:"current_iteration"`
	BacktrackCount    int                    `json:"backtrack_count"`
	SelfHealCount     int                    `json:"self_heal_count"`
	Log               []string               `json:"log"`
	Artifacts         map[string]string      `json:"artifacts,omitempty"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// StageByID returns a pointer into Stages for in-place mutation, creating a
// pending record if the stage hasn't been touched yet.
func (p *PipelineState) StageByID(id StageID) *StageRecord {
	for i := range p.Stages {
		if p.Stages[i].Stage == id {
			return &p.Stages[i]
		}
	}
	p.Stages = append(p.Stages, StageRecord{Stage: id, Status: StageStatusPending})
	return &p.Stages[len(p.Stages)-1]
}

// AppendLog records a line of accumulated log output, matching the teacher's
// append-and-trim style for bounded in-memory logs.
func (p *PipelineState) AppendLog(line string) {
	const maxLines = 2000
	p.Log = append(p.Log, line)
	if len(p.Log) > maxLines {
		p.Log = p.Log[len(p.Log)-maxLines:]
	}
}
