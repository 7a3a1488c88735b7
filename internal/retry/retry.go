package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/vk/buildgridgo/internal/ctxlog"
)

const (
	// DefaultRetries is the default attempt budget beyond the first try.
	DefaultRetries = 3

	// DefaultDelay is the default pause between attempts.
	DefaultDelay = 15 * time.Second
)

// Plan describes one retry policy. The zero value is not useful; use
// NewPlan for defaults.
type Plan struct {
	// Name identifies the operation in log output.
	Name string

	// Retries is the attempt budget beyond the first try, so the
	// operation runs at most Retries+1 times. Zero means exactly one
	// attempt with no retry.
	Retries uint

	// Delay is the fixed pause between consecutive attempts. There is no
	// delay before the first attempt.
	Delay time.Duration
}

// NewPlan returns a Plan for the named operation with the default budget
// and delay.
func NewPlan(name string) Plan {
	return Plan{Name: name, Retries: DefaultRetries, Delay: DefaultDelay}
}

// Do invokes op until it succeeds or the attempt budget is exhausted. It
// returns nil as soon as one attempt succeeds, never invoking further
// attempts; otherwise it returns the error of the last attempt, not the
// first. Cancelling ctx aborts the wait between attempts.
func (p Plan) Do(ctx context.Context, op func(ctx context.Context) error) error {
	logger := ctxlog.FromContext(ctx).With("operation", p.Name)

	attempt := 0
	wrapped := func() (struct{}, error) {
		attempt++
		return struct{}{}, op(ctx)
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Attempt failed, retrying after delay.",
			"attempt", attempt, "max_attempts", p.Retries+1, "delay", wait, "error", err)
	}

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(p.Retries+1),
		backoff.WithNotify(notify),
	)
	if err != nil {
		logger.Error("Operation failed after final attempt.", "attempts", attempt, "error", err)
		return err
	}
	return nil
}
