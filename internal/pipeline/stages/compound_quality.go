package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/learning"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
	"github.com/shipwright-run/shipwright/internal/pipeline/quality"
)

// auditLinePattern parses "CATEGORY|SEVERITY: message" lines the
// compound-quality audit prompt asks the executor to emit.
var auditLinePattern = regexp.MustCompile(`(?i)^(ARCHITECTURE|SECURITY|CORRECTNESS|PERFORMANCE|TESTING|STYLE)\s*\|\s*(CRITICAL|MAJOR|MINOR)\s*[:\-]\s*(.+)$`)

// CompoundQuality runs repeated audit→fix cycles until the quality score
// clears the template's gate or the adaptive cycle budget runs out
// (spec.md §4.3). Skipped entirely when the template sets
// SkipCompoundQuality (fast/hotfix). Declares PolicyBacktrack: an
// unresolved run escalates to the design stage, the same route an
// architecture finding takes mid-run.
type CompoundQuality struct{}

func (CompoundQuality) ID() model.StageID                  { return model.StageCompoundQuality }
func (CompoundQuality) FailurePolicy() model.FailurePolicy { return model.PolicyBacktrack }

func (CompoundQuality) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (CompoundQuality) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	if rc.Template != nil && rc.Template.SkipCompoundQuality {
		return pipeline.StageResult{Skipped: true, Notes: "compound_quality: skipped by template"}, nil
	}

	base := 1
	if rc.Template != nil && rc.Template.BaseCycles > 0 {
		base = rc.Template.BaseCycles
	}
	threshold := 70
	if rc.Template != nil && rc.Template.QualityThreshold > 0 {
		threshold = rc.Template.QualityThreshold
	}
	templateName := "default"
	if rc.Template != nil {
		templateName = rc.Template.Name
	}

	learnedCycles, hasLearned := 0, false
	if rc.Iterations != nil {
		learnedCycles, hasLearned = rc.Iterations.Recommend(templateName)
	}

	limit := pipeline.AdaptiveCycleLimit(pipeline.AdaptiveCyclesInput{
		Base:          base,
		LearnedCycles: learnedCycles,
		HasLearned:    hasLearned,
		FirstCycle:    true,
		BudgetExhausted: rc.BudgetExhausted != nil && rc.BudgetExhausted(),
	})

	var (
		lastResult   quality.CycleResult
		prevCount    = -1
		cyclesRun    int
		auditsRun    []string
		architecture bool
	)

	for cycle := 0; cycle < limit; cycle++ {
		cyclesRun = cycle + 1
		findings, err := runAudit(ctx, rc)
		if err != nil {
			return pipeline.StageResult{}, fmt.Errorf("compound_quality: audit: %w", err)
		}
		auditsRun = append(auditsRun, fmt.Sprintf("cycle-%d", cyclesRun))
		lastResult = quality.CycleResult{Findings: findings, AuditsRun: cyclesRun, DoDPassRate: dodPassRate(findings)}

		curCount := lastResult.CriticalHighCount()
		score := quality.Score(findings)

		if quality.PassesGate(score, threshold) {
			break
		}

		trend := quality.Convergence(prevCount, curCount, cycle == 0)
		prevIssues := prevCount
		prevCount = curCount

		architecture = hasCategory(findings, quality.CategoryArchitecture)
		if architecture {
			break
		}
		if trend == quality.TrendPlateau {
			rc.EmitEvent("compound.plateau", map[string]any{
				"issue_id": rc.Job.IssueID, "cycle": cyclesRun, "issue_count": curCount,
			})
			break
		}

		limit = pipeline.AdaptiveCycleLimit(pipeline.AdaptiveCyclesInput{
			Base:          base,
			LearnedCycles: learnedCycles,
			HasLearned:    hasLearned,
			PrevIssues:    prevIssues,
			CurIssues:     curCount,
			FirstCycle:    cycle == 0,
			BudgetExhausted: rc.BudgetExhausted != nil && rc.BudgetExhausted(),
		})

		if err := applyFixes(ctx, rc, findings); err != nil {
			return pipeline.StageResult{}, fmt.Errorf("compound_quality: apply fixes: %w", err)
		}
	}

	finalScore := quality.Score(lastResult.Findings)
	passed := quality.PassesGate(finalScore, threshold)

	rc.State.Artifacts = ensureArtifacts(rc.State)
	rc.State.Artifacts["quality_score"] = fmt.Sprintf("%d", finalScore)

	if rc.Quality != nil {
		counts := severityCounts(lastResult.Findings)
		_ = rc.Quality.Record(learning.QualityScoreRecord{
			IssueID:     rc.Job.IssueID,
			Template:    templateName,
			Score:       finalScore,
			Critical:    counts[quality.SeverityCritical],
			Major:       counts[quality.SeverityMajor],
			Minor:       counts[quality.SeverityMinor],
			AuditsRun:   auditsRun,
			DoDPassRate: lastResult.DoDPassRate,
		}, passed, threshold)
	}
	if rc.Iterations != nil {
		_ = rc.Iterations.Observe(templateName, cyclesRun)
	}

	notes := fmt.Sprintf("compound_quality: score=%d cycles=%d passed=%t", finalScore, cyclesRun, passed)
	if !passed {
		reason := "quality gate not met"
		if architecture {
			reason = "architecture finding requires design backtrack"
		}
		counts := severityCounts(lastResult.Findings)
		rc.EmitEvent("pipeline.quality_gate_failed", map[string]any{
			"issue_id": rc.Job.IssueID, "score": finalScore, "threshold": threshold, "cycles": cyclesRun,
			"critical": counts[quality.SeverityCritical], "major": counts[quality.SeverityMajor], "minor": counts[quality.SeverityMinor],
		})
		if rc.Tracker != nil {
			_ = rc.Tracker.Comment(ctx, rc.Job.IssueID, fmt.Sprintf(
				"shipwright: compound-quality gate failed (%s)\nscore=%d threshold=%d cycles=%d\ncritical=%d major=%d minor=%d",
				reason, finalScore, threshold, cyclesRun,
				counts[quality.SeverityCritical], counts[quality.SeverityMajor], counts[quality.SeverityMinor]))
		}
		return pipeline.StageResult{}, fmt.Errorf("compound_quality: %s (%s)", reason, notes)
	}
	return pipeline.StageResult{Notes: notes}, nil
}

func (CompoundQuality) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("compound_quality: " + res.Notes)
	return nil
}

func runAudit(ctx context.Context, rc *pipeline.RunContext) ([]quality.Finding, error) {
	prompt := fmt.Sprintf(
		"Audit the changes for issue #%d across architecture, security, correctness, "+
			"performance, testing, and style. List each finding on its own line as "+
			"'CATEGORY|SEVERITY: description' (CATEGORY one of ARCHITECTURE, SECURITY, "+
			"CORRECTNESS, PERFORMANCE, TESTING, STYLE; SEVERITY one of CRITICAL, MAJOR, MINOR). "+
			"Omit categories with no findings.\n\nPLAN:\n%s\n\nDESIGN:\n%s",
		rc.Job.IssueID, rc.State.Artifacts["plan"], rc.State.Artifacts["design"])

	res, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: rc.Worktree})
	if err != nil {
		return nil, err
	}
	return parseAuditFindings(res.Stdout), nil
}

func applyFixes(ctx context.Context, rc *pipeline.RunContext, findings []quality.Finding) error {
	var security, general []string
	for _, f := range findings {
		switch quality.RouteFor(f.Category) {
		case quality.RouteBuildSecurity:
			security = append(security, string(f.Severity)+": "+f.Message)
		case quality.RouteBuildGeneral:
			general = append(general, string(f.Severity)+": "+f.Message)
		}
	}
	if len(security) == 0 && len(general) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Apply fixes for the following compound-quality audit findings.\n")
	if len(security) > 0 {
		b.WriteString("Security-first, address these before anything else:\n")
		for _, s := range security {
			b.WriteString("- " + s + "\n")
		}
	}
	if len(general) > 0 {
		b.WriteString("Other findings:\n")
		for _, g := range general {
			b.WriteString("- " + g + "\n")
		}
	}

	_, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: b.String(), WorkingDir: rc.Worktree})
	return err
}

func parseAuditFindings(output string) []quality.Finding {
	var findings []quality.Finding
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := auditLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		findings = append(findings, quality.Finding{
			Category: quality.Category(strings.ToLower(m[1])),
			Severity: quality.Severity(strings.ToLower(m[2])),
			Message:  m[3],
		})
	}
	return findings
}

func hasCategory(findings []quality.Finding, cat quality.Category) bool {
	for _, f := range findings {
		if f.Category == cat {
			return true
		}
	}
	return false
}

func severityCounts(findings []quality.Finding) map[quality.Severity]int {
	counts := map[quality.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

func dodPassRate(findings []quality.Finding) float64 {
	critical := 0
	for _, f := range findings {
		if f.Severity == quality.SeverityCritical {
			critical++
		}
	}
	if critical == 0 {
		return 1.0
	}
	if critical >= 3 {
		return 0.0
	}
	return 1.0 - float64(critical)*0.3
}
