package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration loading/validation failures, matching
// the teacher's pkg/config/errors.go shape.
var (
	ErrConfigNotFound  = errors.New("configuration file not found")
	ErrInvalidYAML     = errors.New("invalid YAML syntax")
	ErrValidationFailed = errors.New("configuration validation failed")
	ErrTemplateNotFound = errors.New("pipeline template not found")
	ErrInvalidLabelMap  = errors.New("invalid label-map pattern")
)

// ValidationError wraps a single configuration validation failure with
// enough context (component + field) to act on.
type ValidationError struct {
	Component string
	ID        string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s '%s': field '%s': %v", e.Component, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Component, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError constructs a ValidationError.
func NewValidationError(component, id, field string, err error) *ValidationError {
	return &ValidationError{Component: component, ID: id, Field: field, Err: err}
}

// LoadError wraps a configuration file loading failure with file context.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError constructs a LoadError.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
