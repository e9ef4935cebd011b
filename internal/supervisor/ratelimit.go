package supervisor

import (
	"time"

	"github.com/sony/gobreaker"
)

// NewTrackerBreaker wires a circuit breaker over tracker-API calls
// (spec.md §4.5 step 2: "track consecutive tracker-API failures; after 3,
// back off exponentially (30, 60, 120, 240 s, capped at 300 s)"). Grounded
// on `jordigilh/kubernaut`'s domain stack, which carries
// `github.com/sony/gobreaker` for exactly this external-API protection
// role.
func NewTrackerBreaker() *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        "tracker-api",
		MaxRequests: 1,
		Interval:    0, // never reset counts on a timer; only on an explicit trip/cooldown
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

// backoffSchedule is the fixed exponential backoff ladder spec.md §4.5
// step 2 names explicitly, rather than a computed 2^n so the cap is exact.
var backoffSchedule = []time.Duration{
	30 * time.Second, 60 * time.Second, 120 * time.Second, 240 * time.Second, 300 * time.Second,
}

// BackoffFor returns the backoff duration once n consecutive tracker
// failures have accumulated. Backoff only starts at the 3rd consecutive
// failure (spec.md §4.5 step 2: "after 3, back off exponentially"; S5:
// three failures → backoff_s=30, a fourth → backoff_s=60); below that it
// is zero. Capped at the schedule's last entry.
func BackoffFor(n int) time.Duration {
	if n < 3 {
		return 0
	}
	idx := n - 3
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	return backoffSchedule[idx]
}
