package triage

import "github.com/shipwright-run/shipwright/internal/shipwrighterr"

// Unscoreable wraps a fetch failure as triage/unscoreable (spec.md §4.2):
// the Supervisor skips the candidate this cycle but does not blacklist it.
func Unscoreable(cause error) *shipwrighterr.Error {
	return shipwrighterr.New(shipwrighterr.KindUnscoreable, "triage", "issue could not be scored", cause)
}
