package config

import "dario.cat/mergo"

// mergeTemplates merges built-in and user-defined pipeline templates.
// User-defined templates override built-in ones of the same name field by
// field, matching the teacher's mergeAgents/mergeChains shape
// (pkg/config/merge.go): start from a defensive copy of the built-in,
// then mergo.Merge user values on top with override semantics.
func mergeTemplates(builtin map[string]TemplateConfig, user map[string]TemplateConfig) (map[string]*TemplateConfig, error) {
	result := make(map[string]*TemplateConfig, len(builtin)+len(user))

	for name, tmpl := range builtin {
		t := tmpl
		result[name] = &t
	}

	for name, userTmpl := range user {
		if existing, ok := result[name]; ok {
			merged := *existing
			u := userTmpl
			if err := mergo.Merge(&merged, &u, mergo.WithOverride); err != nil {
				return nil, err
			}
			result[name] = &merged
			continue
		}
		t := userTmpl
		t.Name = name
		result[name] = &t
	}

	return result, nil
}

// mergeSystemConfig merges a user-supplied system config on top of defaults,
// non-zero fields overriding. Mirrors the teacher's queue-config merge in
// pkg/config/loader.go.
func mergeSystemConfig(defaults *SystemConfig, user *SystemConfig) (*SystemConfig, error) {
	if user == nil {
		return defaults, nil
	}
	merged := *defaults
	if err := mergo.Merge(&merged, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}
