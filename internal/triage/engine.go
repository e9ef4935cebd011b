package triage

import (
	"context"
	"time"

	"github.com/shipwright-run/shipwright/internal/config"
	"github.com/shipwright-run/shipwright/internal/model"
)

// Result is the triage verdict for one issue (spec.md §4.2: "Given an
// Issue, returns {score, template, complexity}").
type Result struct {
	Score      int
	Template   string
	Complexity int
	Rule       string
	Breakdown  ScoreBreakdown
}

// Engine wires together scoring, complexity, and template selection behind
// the dependencies it needs (dependency checker, classifier, config).
type Engine struct {
	deps       DependencyChecker
	classifier Classifier
	cfg        *config.Config
}

// NewEngine constructs a triage Engine. classifier may be nil to use the
// text heuristic exclusively.
func NewEngine(cfg *config.Config, deps DependencyChecker, classifier Classifier) *Engine {
	if deps == nil {
		deps = NoopDependencyChecker{}
	}
	return &Engine{deps: deps, classifier: classifier, cfg: cfg}
}

// TriageInput bundles the caller-supplied signals (memory, DORA, quality,
// weights) alongside the issue itself. The Supervisor fills in Branch,
// Quality and Weights; Memory, Type and DORA are left at their zero values.
type TriageInput struct {
	Issue   model.Issue
	Now     time.Time
	Memory  MemorySignal
	Type    IssueType
	DORA    DORASignal
	Branch  BranchProtection
	Quality QualityMemory
	Weights map[string]TemplateWeight
}

// Triage scores in, selects a template, and returns the combined Result.
// Returns Unscoreable if the dependency check fails (fetch failure).
func (e *Engine) Triage(ctx context.Context, in TriageInput) (Result, error) {
	dep, err := e.deps.Check(ctx, in.Issue.ID)
	if err != nil {
		return Result{}, Unscoreable(err)
	}

	complexity := Complexity(in.Issue, e.classifier)
	breakdown := Score(in.Issue, in.Now, complexity, dep, in.Memory, in.Type)

	var labelMap []config.CompiledLabelMap
	var triageCfg *config.TriageConfig
	mostConservative, fastest := mostAndLeastConservative(e.cfg)
	if e.cfg != nil {
		labelMap = config.CompileLabelMap(e.cfg.LabelMap)
		if e.cfg.System != nil {
			triageCfg = e.cfg.System.Triage
		}
	}

	template, rule := SelectTemplate(SelectionInput{
		Issue:            in.Issue,
		Score:            breakdown.Total,
		DORA:             in.DORA,
		Branch:           in.Branch,
		LabelMap:         labelMap,
		Quality:          in.Quality,
		Weights:          in.Weights,
		TriageCfg:        triageCfg,
		MostConservative: mostConservative,
		FastestTemplate:  fastest,
	})

	return Result{
		Score:      breakdown.Total,
		Template:   template,
		Complexity: complexity,
		Rule:       rule,
		Breakdown:  breakdown,
	}, nil
}

// mostAndLeastConservative picks the registered templates with the highest
// and lowest QualityThreshold as stand-ins for "most conservative" /
// "fastest" when the waterfall needs a concrete name instead of a literal
// "enterprise"/"fast" that might not be configured.
func mostAndLeastConservative(cfg *config.Config) (conservative, fastest string) {
	if cfg == nil || cfg.Templates == nil {
		return "", ""
	}
	var maxThreshold, minThreshold = -1, 1 << 30
	for _, name := range cfg.Templates.Names() {
		t, ok := cfg.Templates.Get(name)
		if !ok {
			continue
		}
		if t.QualityThreshold > maxThreshold {
			maxThreshold = t.QualityThreshold
			conservative = name
		}
		if t.QualityThreshold < minThreshold {
			minThreshold = t.QualityThreshold
			fastest = name
		}
	}
	return conservative, fastest
}
