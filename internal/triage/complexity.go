package triage

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/shipwright-run/shipwright/internal/model"
)

// refPattern extracts path-looking tokens out of an issue body: anything
// ending in a file extension, with or without a directory part, loosely.
var refPattern = regexp.MustCompile(`[\w./-]+\.[A-Za-z0-9]{1,8}\b`)

// Classifier lets a pluggable external complexity model override the
// text-heuristic estimate (spec.md §4.2: "optionally, an external
// classifier"). DESIGN.md's open-question decision 3 keeps the built-in
// heuristic as the default and structures this as a swappable interface
// rather than wiring a concrete learned model, since none is specified.
type Classifier interface {
	Classify(issue model.Issue) (complexity int, ok bool)
}

// NotablePathPatterns are glob patterns counted as "significant" file
// references for the complexity heuristic — touching one of these implies
// a harder change than an arbitrary path mention.
var NotablePathPatterns = []string{
	"**/migrations/**",
	"**/schema/**",
	"**/*.proto",
	"**/internal/**/*.go",
	"**/cmd/**/*.go",
}

// Complexity estimates 1-10 from body length and referenced file count
// (spec.md §4.2). If classifier is non-nil and returns ok, its verdict
// wins; otherwise the text heuristic is used.
func Complexity(issue model.Issue, classifier Classifier) int {
	if classifier != nil {
		if c, ok := classifier.Classify(issue); ok {
			return clamp(c, 1, 10)
		}
	}
	return clamp(textHeuristicComplexity(issue), 1, 10)
}

func textHeuristicComplexity(issue model.Issue) int {
	refs := refPattern.FindAllString(issue.Body, -1)
	fileRefs := len(refs)
	notable := 0
	for _, ref := range refs {
		for _, pattern := range NotablePathPatterns {
			if ok, _ := doublestar.Match(pattern, strings.TrimPrefix(ref, "/")); ok {
				notable++
				break
			}
		}
	}

	bodyLen := len(issue.Body)

	score := 1
	switch {
	case bodyLen > 4000:
		score += 4
	case bodyLen > 1500:
		score += 3
	case bodyLen > 500:
		score += 2
	case bodyLen > 150:
		score += 1
	}

	switch {
	case fileRefs > 10:
		score += 4
	case fileRefs > 5:
		score += 3
	case fileRefs > 2:
		score += 2
	case fileRefs > 0:
		score += 1
	}

	score += notable

	return score
}
