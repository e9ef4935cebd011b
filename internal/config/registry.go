package config

import "sort"

// TemplateRegistry is a read-only, name-indexed view over the merged
// (builtin + user) template configurations, matching the teacher's
// AgentRegistry/ChainRegistry shape.
type TemplateRegistry struct {
	byName map[string]*TemplateConfig
}

// NewTemplateRegistry builds a registry from a resolved name→config map.
func NewTemplateRegistry(templates map[string]*TemplateConfig) *TemplateRegistry {
	return &TemplateRegistry{byName: templates}
}

// Get returns the named template, or (nil, false) if unknown.
func (r *TemplateRegistry) Get(name string) (*TemplateConfig, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of registered templates.
func (r *TemplateRegistry) Len() int { return len(r.byName) }

// Names returns all registered template names, sorted for stable output.
func (r *TemplateRegistry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithSampleSizeAtLeast filters to templates whose learned weight has at
// least n samples — used by the learned-template-weights selection rule
// (spec.md §4.2 step 6). names is the candidate set to filter, sampleSize
// looks up the sample count per name.
func WithSampleSizeAtLeast(names []string, sampleSize map[string]int, n int) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if sampleSize[name] >= n {
			out = append(out, name)
		}
	}
	return out
}
