// Package guardrails holds cross cutting safety helpers for collector runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a single collector run
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall budget for one pass (fetch, batches, cursor saves)
	Run time.Duration

	// Fetch caps reading the root index and its pages
	Fetch time.Duration

	// Batch caps one ProcessBatch call
	Batch time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForFetch returns a sub context for the fetch phase bounded by Fetch and any remaining parent budget
func ForFetch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Fetch)
}

// ForBatch returns a sub context for one batch bounded by Batch and any remaining parent budget
func ForBatch(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Batch)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder; d <= 0 adds no limit
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
