package triage

import (
	"sort"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/model"
)

// DORASignal summarizes the last N completed runs for the DORA-override
// rule (spec.md §4.2 step 1).
type DORASignal struct {
	ChangeFailureRate float64 // fraction of last N runs that failed
	MedianCycleTime   float64 // seconds
	DeployFrequency   float64 // deploys per day
	SampleSize        int
}

// BranchProtection summarizes the target branch's protection rules
// (spec.md §6 tracker interface: branch_protection).
type BranchProtection struct {
	RequiredReviews int
	EnforceAdmins   bool
}

// QualityMemory summarizes recent compound-quality outcomes for this
// repo/context (spec.md §4.2 step 5).
type QualityMemory struct {
	RecentCritical bool
	AverageScore   float64
	HasData        bool
}

// TemplateWeight is a learned {sample_size, success_rate} pair
// (spec.md §3 learning tables: template-weights).
type TemplateWeight struct {
	SampleSize  int
	SuccessRate float64
}

// SelectionInput bundles everything the template-selection waterfall
// consults.
type SelectionInput struct {
	Issue          model.Issue
	Score          int
	DORA           DORASignal
	Branch         BranchProtection
	LabelMap       []config.CompiledLabelMap
	Quality        QualityMemory
	Weights        map[string]TemplateWeight
	TriageCfg      *config.TriageConfig
	MostConservative string // name of the most conservative configured template
	FastestTemplate  string // name of the fastest configured template
}

// SelectTemplate runs the waterfall (spec.md §4.2 "Template selection") and
// returns the chosen template name plus which rule fired, for logging.
func SelectTemplate(in SelectionInput) (template string, rule string) {
	dora := in.TriageCfg
	if dora == nil {
		dora = &config.TriageConfig{ConservativeThreshold: 0.40, FastCFRThreshold: 0.10, FastScoreThreshold: 60}
	}

	// 1. DORA override.
	if in.DORA.SampleSize > 0 {
		if in.DORA.ChangeFailureRate > dora.ConservativeThreshold {
			return orDefault(in.MostConservative, "enterprise"), "dora_cfr_high"
		}
		if in.DORA.ChangeFailureRate < dora.FastCFRThreshold && in.Score >= dora.FastScoreThreshold {
			return orDefault(in.FastestTemplate, "fast"), "dora_cfr_low_score_high"
		}
	}

	// 2. Branch-protection escalation.
	if in.Branch.RequiredReviews > 1 || in.Branch.EnforceAdmins {
		return orDefault(in.MostConservative, "enterprise"), "branch_protection"
	}

	// 3. Label overrides.
	if in.Issue.HasAnyLabel("hotfix", "incident") {
		return "hotfix", "label_hotfix"
	}
	if in.Issue.HasLabel("security") {
		return "enterprise", "label_security"
	}

	// 4. Configured label-map.
	if t, ok := config.MatchTemplate(in.LabelMap, in.Issue.Labels); ok {
		return t, "label_map"
	}

	// 5. Quality memory.
	if in.Quality.HasData {
		if in.Quality.RecentCritical {
			return "enterprise", "quality_memory_critical"
		}
		if in.Quality.AverageScore < 60 {
			return "full", "quality_memory_low_avg"
		}
		if in.Quality.AverageScore > 80 && in.Score >= 60 {
			return orDefault(in.FastestTemplate, "fast"), "quality_memory_high_avg"
		}
	}

	// 6. Learned template weights: highest success_rate among those with
	// sample_size >= 3.
	if best, ok := bestWeighted(in.Weights); ok {
		return best, "learned_weights"
	}

	// 7. Fallback by score.
	switch {
	case in.Score >= 70:
		return "fast", "fallback_score_high"
	case in.Score >= 40:
		return "standard", "fallback_score_mid"
	default:
		return "full", "fallback_score_low"
	}
}

func bestWeighted(weights map[string]TemplateWeight) (string, bool) {
	candidates := make([]string, 0, len(weights))
	for name, w := range weights {
		if w.SampleSize >= 3 {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		wi, wj := weights[candidates[i]], weights[candidates[j]]
		if wi.SuccessRate != wj.SuccessRate {
			return wi.SuccessRate > wj.SuccessRate
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
