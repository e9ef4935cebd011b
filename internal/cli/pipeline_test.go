package cli

import (
	"testing"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/shipwright-run/shipwright/internal/pipeline/stages"
	"github.com/stretchr/testify/assert"
)

func TestBuildRegistry_AllThirteenStages(t *testing.T) {
	tmpl := &config.TemplateConfig{Name: "standard", MaxIterations: 3}
	reg := buildRegistry(tmpl, 0)

	want := []model.StageID{
		model.StageIntake, model.StagePlan, model.StageDesign, model.StageTestFirst,
		model.StageBuild, model.StageTest, model.StageReview, model.StageCompoundQuality,
		model.StagePR, model.StageMerge, model.StageDeploy, model.StageValidate, model.StageMonitor,
	}
	assert.Len(t, reg, len(want))
	for _, id := range want {
		_, ok := reg[id]
		assert.True(t, ok, "missing stage %s", id)
	}
}

func TestBuildRegistry_MaxIterationsOverride(t *testing.T) {
	tmpl := &config.TemplateConfig{Name: "standard", MaxIterations: 3}
	reg := buildRegistry(tmpl, 7)

	build, ok := reg[model.StageBuild].(stages.Build)
	assert.True(t, ok)
	assert.Equal(t, model.StageBuild, build.ID())
	assert.Equal(t, 7, build.MaxIterations)
}
