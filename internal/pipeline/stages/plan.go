package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// PlanValidationMode names why a plan-validation gate rejected a draft
// (spec.md §4.3 plan contract).
type PlanValidationMode string

const (
	ModeRequirementsUnclear PlanValidationMode = "requirements_unclear"
	ModeInsufficientDetail  PlanValidationMode = "insufficient_detail"
	ModeScopeTooLarge       PlanValidationMode = "scope_too_large"
)

const maxPlanRegenerations = 2

// Plan produces a plan markdown with a task checklist and
// definition-of-done, validated by a second executor invocation that must
// answer VALID: true|false (spec.md §4.3).
type Plan struct{}

func (Plan) ID() model.StageID                  { return model.StagePlan }
func (Plan) FailurePolicy() model.FailurePolicy { return model.PolicyRetry }

func (Plan) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Plan) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	prompt := planPrompt(rc, "")
	lastSignature := ""

	for attempt := 0; attempt <= maxPlanRegenerations; attempt++ {
		res, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: rc.Worktree})
		if err != nil {
			return pipeline.StageResult{}, fmt.Errorf("plan: invoke executor: %w", err)
		}
		if err := validatePlanOutput(res.Stdout); err != nil {
			return pipeline.StageResult{}, fmt.Errorf("plan: %w", err)
		}

		valid, mode, signature := validatePlan(ctx, rc, res.Stdout)
		rc.EmitEvent("plan.validated", map[string]any{
			"issue_id": rc.Job.IssueID, "valid": valid, "attempt": attempt, "mode": string(mode),
		})
		if valid {
			rc.State.Artifacts = setArtifact(rc.State, "plan", res.Stdout)
			return pipeline.StageResult{Notes: "plan validated"}, nil
		}

		if signature != "" && signature == lastSignature {
			return pipeline.StageResult{}, fmt.Errorf("plan: repeated validation failure signature %q, escalating", signature)
		}
		lastSignature = signature
		prompt = planPrompt(rc, string(mode))
	}

	return pipeline.StageResult{}, fmt.Errorf("plan: still invalid after %d regenerations", maxPlanRegenerations)
}

func (Plan) Record(_ context.Context, _ *pipeline.RunContext, _ pipeline.StageResult) error { return nil }

func planPrompt(rc *pipeline.RunContext, guidance string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write an implementation plan for issue #%d: %s\n\n%s\n", rc.Job.IssueID, rc.Issue.Title, rc.Issue.Body)
	b.WriteString("Include an explicit task checklist and a definition-of-done section.\n")
	if guidance != "" {
		fmt.Fprintf(&b, "\nThe previous plan was rejected as %s. Address this specifically.\n", guidance)
	}
	return b.String()
}

// validatePlanOutput applies the stage's own failure contract (empty or
// <3 lines) ahead of the second-pass validation gate (spec.md §4.3).
// Output is not scanned for executor error strings here.
func validatePlanOutput(out string) error {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return fmt.Errorf("empty plan output")
	}
	if len(strings.Split(trimmed, "\n")) < 3 {
		return fmt.Errorf("plan output has fewer than 3 lines")
	}
	return nil
}

// validatePlan invokes the executor a second time to judge VALID:
// true|false (spec.md §4.3 plan-validation gate).
func validatePlan(ctx context.Context, rc *pipeline.RunContext, plan string) (valid bool, mode PlanValidationMode, signature string) {
	judgePrompt := fmt.Sprintf("Judge whether the following plan is implementable as written. "+
		"Reply with a line starting 'VALID: true' or 'VALID: false', and if false, a reason line "+
		"starting 'REASON: ' naming one of requirements_unclear, insufficient_detail, scope_too_large.\n\nPLAN:\n%s", plan)

	res, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: judgePrompt, WorkingDir: rc.Worktree})
	if err != nil {
		return false, ModeInsufficientDetail, "judge_invoke_error"
	}

	lower := strings.ToLower(res.Stdout)
	if strings.Contains(lower, "valid: true") {
		return true, "", ""
	}

	mode = ModeInsufficientDetail
	switch {
	case strings.Contains(lower, "requirements_unclear"):
		mode = ModeRequirementsUnclear
	case strings.Contains(lower, "scope_too_large"):
		mode = ModeScopeTooLarge
	}
	return false, mode, string(mode)
}

func setArtifact(ps *model.PipelineState, key, value string) map[string]string {
	if ps.Artifacts == nil {
		ps.Artifacts = make(map[string]string)
	}
	ps.Artifacts[key] = value
	return ps.Artifacts
}
