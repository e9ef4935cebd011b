package config

import (
	"fmt"
	"regexp"
)

// Validator performs comprehensive validation on loaded configuration,
// mirroring the teacher's pkg/config/validator.go shape: one ValidateAll
// entry point fanning out to per-component checks, accumulating every
// failure rather than stopping at the first.
type Validator struct {
	cfg *Config
}

// NewValidator constructs a Validator bound to cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation and returns a joined error, or nil if
// the configuration is sound. Config validation failures are startup-fatal
// (SPEC_FULL.md §3): the daemon never admits issues against an invalid
// config.
func (v *Validator) ValidateAll() error {
	var errs []error
	errs = append(errs, v.validateSystem()...)
	errs = append(errs, v.validateTemplates()...)
	errs = append(errs, v.validateLabelMap()...)
	return joinErrors(errs)
}

func (v *Validator) validateSystem() []error {
	var errs []error
	s := v.cfg.System
	if s == nil {
		errs = append(errs, NewValidationError("system", "", "", fmt.Errorf("%w: system config missing", ErrMissingRequiredField)))
		return errs
	}
	if s.MaxParallel < 1 {
		errs = append(errs, NewValidationError("system", "", "max_parallel", fmt.Errorf("%w: must be >= 1", ErrInvalidValue)))
	}
	if s.PriorityLaneCap < 0 || s.PriorityLaneCap > s.MaxParallel {
		errs = append(errs, NewValidationError("system", "", "priority_lane_cap", fmt.Errorf("%w: must be within [0, max_parallel]", ErrInvalidValue)))
	}
	if s.WatchLabel == "" {
		errs = append(errs, NewValidationError("system", "", "watch_label", fmt.Errorf("%w", ErrMissingRequiredField)))
	}
	if s.Triage != nil && s.Triage.DORAWindow < 1 {
		errs = append(errs, NewValidationError("system", "triage", "dora_window", fmt.Errorf("%w: must be >= 1", ErrInvalidValue)))
	}
	return errs
}

func (v *Validator) validateTemplates() []error {
	var errs []error
	if v.cfg.Templates == nil || v.cfg.Templates.Len() == 0 {
		errs = append(errs, NewValidationError("templates", "", "", fmt.Errorf("%w: no templates configured", ErrMissingRequiredField)))
		return errs
	}
	for _, name := range v.cfg.Templates.Names() {
		t, _ := v.cfg.Templates.Get(name)
		if t.BaseCycles < 1 {
			errs = append(errs, NewValidationError("template", name, "base_cycles", fmt.Errorf("%w: must be >= 1", ErrInvalidValue)))
		}
		if t.QualityThreshold < 40 || t.QualityThreshold > 100 {
			errs = append(errs, NewValidationError("template", name, "quality_threshold", fmt.Errorf("%w: hard floor is 40", ErrInvalidValue)))
		}
		if t.MaxIterations < 1 {
			errs = append(errs, NewValidationError("template", name, "max_iterations", fmt.Errorf("%w: must be >= 1", ErrInvalidValue)))
		}
		switch t.MergeStrategy {
		case "squash", "merge", "rebase", "":
		default:
			errs = append(errs, NewValidationError("template", name, "merge_strategy", fmt.Errorf("%w: %q", ErrInvalidValue, t.MergeStrategy)))
		}
	}
	if v.cfg.System != nil {
		if _, ok := v.cfg.Templates.Get(v.cfg.System.DefaultTemplate); v.cfg.System.DefaultTemplate != "" && !ok {
			errs = append(errs, NewValidationError("system", "", "default_template", fmt.Errorf("%w: %q", ErrTemplateNotFound, v.cfg.System.DefaultTemplate)))
		}
	}
	return errs
}

func (v *Validator) validateLabelMap() []error {
	var errs []error
	for _, entry := range v.cfg.LabelMap {
		if _, err := regexp.Compile(entry.Pattern); err != nil {
			errs = append(errs, NewValidationError("label_map", entry.Pattern, "pattern", fmt.Errorf("%w: %v", ErrInvalidLabelMap, err)))
			continue
		}
		if _, ok := v.cfg.Templates.Get(entry.Template); !ok {
			errs = append(errs, NewValidationError("label_map", entry.Pattern, "template", fmt.Errorf("%w: %q", ErrTemplateNotFound, entry.Template)))
		}
	}
	return errs
}

// ErrMissingRequiredField and ErrInvalidValue mirror the teacher's
// pkg/config/errors.go sentinel set, scoped to this package's validation
// concerns.
var (
	ErrMissingRequiredField = fmt.Errorf("missing required field")
	ErrInvalidValue         = fmt.Errorf("invalid field value")
)

func joinErrors(errs []error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	if len(nonNil) == 1 {
		return nonNil[0]
	}
	msg := fmt.Sprintf("%d configuration validation errors:", len(nonNil))
	for _, e := range nonNil {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, msg)
}
