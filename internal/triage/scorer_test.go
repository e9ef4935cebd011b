package triage

import (
	"testing"
	"time"

	"github.com/shipwright-run/shipwright/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScore_Bounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issue := model.Issue{
		ID:        1,
		Labels:    []string{"urgent", "security"},
		CreatedAt: now.Add(-10 * 24 * time.Hour),
	}
	b := Score(issue, now, 1, DependencySignal{ReferencedByOthers: true}, MemorySignal{PriorSuccess: true}, TypeSecurity)
	assert.GreaterOrEqual(t, b.Total, 0)
	assert.LessOrEqual(t, b.Total, 100)
	// priority 30 + age 15 + complexity~20 + dep 15 + type 10 + memory 10 = 100, clamped.
	assert.Equal(t, 100, b.Total)
}

func TestScore_LowSignals(t *testing.T) {
	now := time.Now()
	issue := model.Issue{ID: 2, CreatedAt: now}
	b := Score(issue, now, 10, DependencySignal{HasOpenBlocker: true}, MemorySignal{PriorFailure: true}, TypeOther)
	assert.GreaterOrEqual(t, b.Total, 0)
}

func TestComplexity_Bounds(t *testing.T) {
	issue := model.Issue{Body: ""}
	c := Complexity(issue, nil)
	assert.GreaterOrEqual(t, c, 1)
	assert.LessOrEqual(t, c, 10)

	longBody := make([]byte, 6000)
	for i := range longBody {
		longBody[i] = 'x'
	}
	issue2 := model.Issue{Body: string(longBody) + " a/b/c.go d/e/f.go g/h/i.go j/k/l.go m/n/o.go"}
	c2 := Complexity(issue2, nil)
	assert.LessOrEqual(t, c2, 10)
	assert.Greater(t, c2, c)
}

type stubClassifier struct {
	c  int
	ok bool
}

func (s stubClassifier) Classify(model.Issue) (int, bool) { return s.c, s.ok }

func TestComplexity_ClassifierOverride(t *testing.T) {
	issue := model.Issue{Body: "short"}
	c := Complexity(issue, stubClassifier{c: 9, ok: true})
	assert.Equal(t, 9, c)
}

func TestLess_TieBreaks(t *testing.T) {
	now := time.Now()
	older := model.Issue{ID: 5, CreatedAt: now.Add(-time.Hour)}
	newer := model.Issue{ID: 2, CreatedAt: now}

	assert.True(t, Less(80, older, 70, newer), "higher score wins")
	assert.True(t, Less(70, older, 70, newer), "equal score: older wins")
	assert.False(t, Less(70, newer, 70, older))

	sameAge := now
	a := model.Issue{ID: 1, CreatedAt: sameAge}
	b := model.Issue{ID: 2, CreatedAt: sameAge}
	assert.True(t, Less(50, a, 50, b), "equal score+age: smaller id wins")
}
