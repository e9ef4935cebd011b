// Package shipwrighterr defines the error taxonomy shared across Shipwright's
// components. Every cross-component failure is one of a fixed set of kinds;
// nothing is surfaced as a bare string.
package shipwrighterr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the fixed failure categories below an Error
// belongs to. Kinds drive recovery policy, not just presentation.
type Kind string

// The fixed taxonomy (spec.md §7).
const (
	KindTransientNetwork   Kind = "transient_network"
	KindAuth               Kind = "auth"
	KindExecutorOutput     Kind = "executor_output"
	KindQualityGateBelow   Kind = "quality_gate_below_threshold"
	KindNoProgress         Kind = "no_progress"
	KindStateCorruption    Kind = "state_corruption"
	KindLockTimeout        Kind = "lock_timeout"
	KindBudgetExhausted    Kind = "budget_exhausted"
	KindPlateau            Kind = "plateau"
	KindNoRealChanges      Kind = "no_real_changes"
	KindUnscoreable        Kind = "triage/unscoreable"
	KindValidation         Kind = "validation"
)

// Error is a typed, kind-tagged error. Component is the owning subsystem
// (e.g. "statestore", "pipeline.build"), used only for diagnostics.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

// Unwrap lets errors.Is/errors.As reach the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New constructs a kind-tagged error.
func New(kind Kind, component, message string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: cause}
}

// Is returns true if err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err isn't a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ExitCode maps a Kind to the repo's external exit-code convention:
// 0 = success, 1 = error/broken, 2 = check-condition negative (spec.md §6).
// Kinds that represent a negative check result (the gate ran and found a
// problem, rather than the gate failing to run) map to 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindQualityGateBelow, KindPlateau, KindNoRealChanges:
		return 2
	default:
		return 1
	}
}
