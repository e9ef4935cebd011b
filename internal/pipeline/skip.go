package pipeline

import "github.com/shipwright-run/shipwright/internal/model"

// docOnlySkips are stages skipped when the issue/diff is doc-only (spec.md
// §4.3 rule a).
var docOnlySkips = map[model.StageID]bool{
	model.StageTest:            true,
	model.StageReview:          true,
	model.StageCompoundQuality: true,
}

// hotfixSkips are stages skipped for hotfix-labeled issues (spec.md §4.3
// rule a).
var hotfixSkips = map[model.StageID]bool{
	model.StagePlan:            true,
	model.StageDesign:          true,
	model.StageCompoundQuality: true,
}

// SkipInput carries everything ShouldSkip needs to decide, independent of
// RunContext so the decision is a pure function of small inputs.
type SkipInput struct {
	Stage            model.StageID
	IsDocOnly        bool
	IsHotfix         bool
	Complexity       int
	PostBuildDiffLOC int
	HasRunBuild      bool
	ReassessSkip     bool // mid-pipeline re-assessment flagged this stage (rule d)
}

// ShouldSkip implements spec.md §4.3's intelligent-skipping rules. Stages
// in model.NeverSkipped are never skipped regardless of inputs.
func ShouldSkip(in SkipInput) (bool, string) {
	if model.NeverSkipped[in.Stage] {
		return false, ""
	}

	if in.IsDocOnly && docOnlySkips[in.Stage] {
		return true, "doc-only change"
	}
	if in.IsHotfix && hotfixSkips[in.Stage] {
		return true, "hotfix template"
	}

	if in.Complexity <= 2 {
		switch in.Stage {
		case model.StageDesign, model.StageCompoundQuality, model.StageReview:
			return true, "complexity <= 2"
		}
	}
	if in.Complexity <= 3 && in.Stage == model.StageDesign {
		return true, "complexity <= 3"
	}

	if in.HasRunBuild && in.Stage == model.StageCompoundQuality && in.PostBuildDiffLOC < 20 {
		return true, "post-build diff < 20 lines"
	}

	if in.ReassessSkip {
		return true, "mid-pipeline re-assessment"
	}

	return false, ""
}
