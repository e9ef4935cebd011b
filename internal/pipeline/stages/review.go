package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shipwright-run/shipwright/internal/executor"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline"
)

// reviewLinePattern parses one finding line the review prompt asks the
// executor to emit, e.g. "CRITICAL: SQL injection in handler.go:42".
var reviewLinePattern = regexp.MustCompile(`(?i)^(CRITICAL|BUG|SECURITY|WARNING|SUGGESTION)\s*[:\-]\s*(.+)$`)

// ReviewFinding is one line item the review stage's diff audit surfaces.
type ReviewFinding struct {
	Level   string
	Message string
}

// Review asks the executor to audit the accumulated diff and counts
// findings by severity (spec.md §4.3: "counts Critical/Bug/Security/
// Warning/Suggestion; blocks on Critical+Security unless compound_quality
// is enabled or the template is fast/hotfix").
type Review struct{}

func (Review) ID() model.StageID                  { return model.StageReview }
func (Review) FailurePolicy() model.FailurePolicy { return model.PolicyRetry }

func (Review) Prepare(_ context.Context, _ *pipeline.RunContext) error { return nil }

func (Review) Execute(ctx context.Context, rc *pipeline.RunContext) (pipeline.StageResult, error) {
	prompt := fmt.Sprintf(
		"Review the changes made for issue #%d against the plan and design below. "+
			"List each finding on its own line as 'LEVEL: description', where LEVEL is one "+
			"of CRITICAL, BUG, SECURITY, WARNING, or SUGGESTION. If there are no findings at "+
			"a level, omit it.\n\nPLAN:\n%s\n\nDESIGN:\n%s",
		rc.Job.IssueID, rc.State.Artifacts["plan"], rc.State.Artifacts["design"])

	res, err := rc.Executor.Invoke(ctx, executor.Invocation{Prompt: prompt, WorkingDir: rc.Worktree})
	if err != nil {
		return pipeline.StageResult{}, fmt.Errorf("review: %w", err)
	}

	findings := parseReviewFindings(res.Stdout)
	counts := map[string]int{}
	for _, f := range findings {
		counts[strings.ToUpper(f.Level)]++
	}
	rc.State.Artifacts = ensureArtifacts(rc.State)
	rc.State.Artifacts["review_critical"] = fmt.Sprintf("%d", counts["CRITICAL"])
	rc.State.Artifacts["review_security"] = fmt.Sprintf("%d", counts["SECURITY"])

	blocking := counts["CRITICAL"] + counts["SECURITY"]
	fastTrack := rc.Template != nil && (rc.Template.Name == "fast" || rc.Template.Name == "hotfix")
	compoundQualityHandles := rc.Template != nil && !rc.Template.SkipCompoundQuality

	if blocking > 0 && !fastTrack && !compoundQualityHandles {
		return pipeline.StageResult{}, fmt.Errorf(
			"review: %d blocking finding(s) (critical=%d security=%d)", blocking, counts["CRITICAL"], counts["SECURITY"])
	}

	notes := fmt.Sprintf("review: critical=%d bug=%d security=%d warning=%d suggestion=%d",
		counts["CRITICAL"], counts["BUG"], counts["SECURITY"], counts["WARNING"], counts["SUGGESTION"])
	return pipeline.StageResult{Notes: notes}, nil
}

func (Review) Record(_ context.Context, rc *pipeline.RunContext, res pipeline.StageResult) error {
	rc.State.AppendLog("review: " + res.Notes)
	return nil
}

func parseReviewFindings(output string) []ReviewFinding {
	var findings []ReviewFinding
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := reviewLinePattern.FindStringSubmatch(line); m != nil {
			findings = append(findings, ReviewFinding{Level: strings.ToUpper(m[1]), Message: m[2]})
		}
	}
	return findings
}
