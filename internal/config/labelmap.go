package config

import "regexp"

// CompiledLabelMap is the regex-compiled form of LabelMap entries, ready for
// repeated matching against an issue's labels during template selection
// (spec.md §4.2 step 4).
type CompiledLabelMap struct {
	pattern  *regexp.Regexp
	template string
}

// CompileLabelMap compiles every entry once; invalid patterns are skipped
// (ValidateAll already reports them as configuration errors, so by the time
// this runs in the hot path the configuration is known-good).
func CompileLabelMap(entries []LabelMapEntry) []CompiledLabelMap {
	compiled := make([]CompiledLabelMap, 0, len(entries))
	for _, e := range entries {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, CompiledLabelMap{pattern: re, template: e.Template})
	}
	return compiled
}

// MatchTemplate returns the template of the first entry whose pattern
// matches any of labels, in configuration order, or ("", false) if none
// match.
func MatchTemplate(compiled []CompiledLabelMap, labels []string) (string, bool) {
	for _, c := range compiled {
		for _, label := range labels {
			if c.pattern.MatchString(label) {
				return c.template, true
			}
		}
	}
	return "", false
}
