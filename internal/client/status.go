package client

import (
	"context"
	"time"
)

// StatusCallback provides notifications about client operation status so
// the UI can show feedback while a generation is backing off.
type StatusCallback interface {
	// OnRetry is called before waiting for a retry.
	// attempt is the upcoming retry number (1-based), maxAttempts the retry budget.
	OnRetry(attempt, maxAttempts int, delay time.Duration, reason string)

	// OnGiveUp is called when an error is returned without further retries.
	// exhausted is true when the retry budget ran out on a transient error.
	OnGiveUp(err error, exhausted bool)
}

// DefaultStatusCallback is a no-op implementation of StatusCallback.
type DefaultStatusCallback struct{}

// OnRetry does nothing.
func (DefaultStatusCallback) OnRetry(attempt, maxAttempts int, delay time.Duration, reason string) {}

// OnGiveUp does nothing.
func (DefaultStatusCallback) OnGiveUp(err error, exhausted bool) {}

// StatusFuncs adapts plain functions to StatusCallback. Nil fields are skipped.
type StatusFuncs struct {
	Retry  func(attempt, maxAttempts int, delay time.Duration, reason string)
	GiveUp func(err error, exhausted bool)
}

// OnRetry calls Retry if set.
func (f StatusFuncs) OnRetry(attempt, maxAttempts int, delay time.Duration, reason string) {
	if f.Retry != nil {
		f.Retry(attempt, maxAttempts, delay, reason)
	}
}

// OnGiveUp calls GiveUp if set.
func (f StatusFuncs) OnGiveUp(err error, exhausted bool) {
	if f.GiveUp != nil {
		f.GiveUp(err, exhausted)
	}
}

type statusKey struct{}

// ContextWithStatus returns a context whose Retrier.Stream calls report to
// cb instead of the Retrier's own callback.
func ContextWithStatus(ctx context.Context, cb StatusCallback) context.Context {
	return context.WithValue(ctx, statusKey{}, cb)
}

func statusFromContext(ctx context.Context) StatusCallback {
	cb, _ := ctx.Value(statusKey{}).(StatusCallback)
	return cb
}
