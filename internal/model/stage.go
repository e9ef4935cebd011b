package model

// StageID names one of the fixed, ordered pipeline stages (spec.md §3).
type StageID string

// The fixed stage set, in execution order. Never reordered or extended at
// runtime — the set is closed.
const (
	StageIntake           StageID = "intake"
	StagePlan             StageID = "plan"
	StageDesign           StageID = "design"
	StageTestFirst        StageID = "test_first"
	StageBuild            StageID = "build"
	StageTest             StageID = "test"
	StageReview           StageID = "review"
	StageCompoundQuality  StageID = "compound_quality"
	StagePR               StageID = "pr"
	StageMerge            StageID = "merge"
	StageDeploy           StageID = "deploy"
	StageValidate         StageID = "validate"
	StageMonitor          StageID = "monitor"
)

// Stages is the canonical, ordered stage sequence.
var Stages = []StageID{
	StageIntake, StagePlan, StageDesign, StageTestFirst, StageBuild,
	StageTest, StageReview, StageCompoundQuality, StagePR, StageMerge,
	StageDeploy, StageValidate, StageMonitor,
}

// NeverSkipped are the stages intelligent skipping must never bypass
// (spec.md §4.3).
var NeverSkipped = map[StageID]bool{
	StageIntake: true,
	StageBuild:  true,
	StageTest:   true,
	StagePR:     true,
	StageMerge:  true,
}

// StageStatus is the per-stage lifecycle state.
type StageStatus string

const (
	StageStatusPending StageStatus = "pending"
	StageStatusRunning StageStatus = "running"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
	StageStatusBlocked  StageStatus = "blocked"
)

// IdempotencyClass describes whether a stage may be safely re-run.
type IdempotencyClass string

const (
	IdempotencyPure          IdempotencyClass = "pure"
	IdempotencySideEffecting IdempotencyClass = "side-effecting"
)

// FailurePolicy names the recovery strategy a stage declares up front.
type FailurePolicy string

const (
	PolicyRetry     FailurePolicy = "retry"
	PolicySelfHeal  FailurePolicy = "self-heal"
	PolicyBacktrack FailurePolicy = "backtrack"
	PolicyFailFast  FailurePolicy = "fail-fast"
	PolicySkip      FailurePolicy = "skip"
)

// Index returns the position of a stage in the canonical sequence, or -1.
func Index(id StageID) int {
	for i, s := range Stages {
		if s == id {
			return i
		}
	}
	return -1
}
