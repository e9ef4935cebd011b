package triage

import (
	"testing"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSelectTemplate_FallbackByScore(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{Issue: model.Issue{}, Score: 70})
	assert.Equal(t, "fast", tmpl)
	assert.Equal(t, "fallback_score_high", rule)

	tmpl, _ = SelectTemplate(SelectionInput{Issue: model.Issue{}, Score: 40})
	assert.Equal(t, "standard", tmpl)

	tmpl, _ = SelectTemplate(SelectionInput{Issue: model.Issue{}, Score: 39})
	assert.Equal(t, "full", tmpl)

	tmpl, _ = SelectTemplate(SelectionInput{Issue: model.Issue{}, Score: 0})
	assert.Equal(t, "full", tmpl)

	tmpl, _ = SelectTemplate(SelectionInput{Issue: model.Issue{}, Score: 100})
	assert.Equal(t, "fast", tmpl)
}

func TestSelectTemplate_LabelHotfix(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{
		Issue: model.Issue{Labels: []string{"hotfix"}}, Score: 10,
	})
	assert.Equal(t, "hotfix", tmpl)
	assert.Equal(t, "label_hotfix", rule)
}

func TestSelectTemplate_LabelSecurity(t *testing.T) {
	tmpl, _ := SelectTemplate(SelectionInput{
		Issue: model.Issue{Labels: []string{"security"}}, Score: 10,
	})
	assert.Equal(t, "enterprise", tmpl)
}

func TestSelectTemplate_DORAOverride(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 90,
		DORA: DORASignal{ChangeFailureRate: 0.5, SampleSize: 5},
	})
	assert.Equal(t, "enterprise", tmpl)
	assert.Equal(t, "dora_cfr_high", rule)

	tmpl, rule = SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 90,
		DORA: DORASignal{ChangeFailureRate: 0.05, SampleSize: 5},
	})
	assert.Equal(t, "fast", tmpl)
	assert.Equal(t, "dora_cfr_low_score_high", rule)
}

func TestSelectTemplate_BranchProtection(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 90,
		Branch: BranchProtection{RequiredReviews: 2},
	})
	assert.Equal(t, "enterprise", tmpl)
	assert.Equal(t, "branch_protection", rule)
}

func TestSelectTemplate_QualityMemory(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 90,
		Quality: QualityMemory{HasData: true, RecentCritical: true},
	})
	assert.Equal(t, "enterprise", tmpl)
	assert.Equal(t, "quality_memory_critical", rule)

	tmpl, rule = SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 90,
		Quality: QualityMemory{HasData: true, AverageScore: 50},
	})
	assert.Equal(t, "full", tmpl)
	assert.Equal(t, "quality_memory_low_avg", rule)
}

func TestSelectTemplate_LearnedWeights(t *testing.T) {
	tmpl, rule := SelectTemplate(SelectionInput{
		Issue: model.Issue{}, Score: 50,
		Weights: map[string]TemplateWeight{
			"standard": {SampleSize: 5, SuccessRate: 0.7},
			"full":     {SampleSize: 10, SuccessRate: 0.9},
			"fast":     {SampleSize: 1, SuccessRate: 1.0}, // below sample threshold, excluded
		},
	})
	assert.Equal(t, "full", tmpl)
	assert.Equal(t, "learned_weights", rule)
}
