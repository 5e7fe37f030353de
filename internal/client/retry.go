package client

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"vpnarch/internal/logging"
	"vpnarch/internal/prompt"
	"vpnarch/internal/ratelimit"
)

// RetryConfig holds the retry policy for opening a stream.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Backoff unit: attempt a waits BaseDelay * 2^(a+1)
	MaxJitter  time.Duration // Random jitter is drawn from [0, MaxJitter)
}

// DefaultRetryConfig waits 2s, 4s and 8s (plus up to 1s jitter) between at
// most four attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxJitter:  1 * time.Second,
	}
}

// maxBackoffShift caps the exponent for long retry budgets.
const maxBackoffShift = 20

// CalculateBackoff returns the wait before retrying after the given
// 0-indexed failed attempt: baseDelay * 2^(attempt+1) plus jitter in
// [0, maxJitter). Jitter keeps many clients from retrying in lockstep.
func CalculateBackoff(baseDelay time.Duration, attempt int, maxJitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	shift := min(attempt+1, maxBackoffShift)
	delay := baseDelay << shift
	if delay>>shift != baseDelay {
		delay = math.MaxInt64
	}

	if maxJitter > 0 && delay <= math.MaxInt64-maxJitter {
		delay += time.Duration(rand.Int64N(int64(maxJitter)))
	}
	return delay
}

// RetryState tracks one Retrier.Stream call.
type RetryState struct {
	Attempt    int // 0-indexed attempt currently being made
	MaxRetries int
	LastError  error
}

// CanRetry reports whether another attempt is allowed after the current one.
func (s RetryState) CanRetry() bool {
	return s.Attempt < s.MaxRetries
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrier makes opening a stream resilient to transient backend overload.
// Only call establishment is retried: once a stream is returned its
// fragments are delivered as-is.
type Retrier struct {
	client  StreamingClient
	cfg     RetryConfig
	sleep   SleepFunc
	limiter *ratelimit.Limiter
	status  StatusCallback
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep SleepFunc) RetrierOption {
	return func(r *Retrier) { r.sleep = sleep }
}

// WithLimiter makes every attempt, retries included, wait for a slot.
func WithLimiter(l *ratelimit.Limiter) RetrierOption {
	return func(r *Retrier) { r.limiter = l }
}

// WithStatusCallback sets the callback notified about retries when the
// stream context carries none (see ContextWithStatus).
func WithStatusCallback(cb StatusCallback) RetrierOption {
	return func(r *Retrier) {
		if cb != nil {
			r.status = cb
		}
	}
}

// NewRetrier wraps client with the given retry policy.
func NewRetrier(client StreamingClient, cfg RetryConfig, opts ...RetrierOption) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	r := &Retrier{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
		status: DefaultStatusCallback{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the wrapped client's model.
func (r *Retrier) Model() string {
	return r.client.Model()
}

// Stream opens a stream, retrying transient overload failures with
// exponential backoff. The last observed error is returned unchanged once
// the error is not transient or the retry budget is spent.
func (r *Retrier) Stream(ctx context.Context, req prompt.Request) (*Stream, error) {
	state := RetryState{MaxRetries: r.cfg.MaxRetries}
	status := r.status
	if cb := statusFromContext(ctx); cb != nil {
		status = cb
	}

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		stream, err := r.client.Stream(ctx, req)
		if err == nil {
			if state.Attempt > 0 {
				logging.Info("stream established after retry", "attempt", state.Attempt, "model", r.client.Model())
			}
			return stream, nil
		}
		state.LastError = err

		if !IsTransientOverload(err) {
			logging.Warn("generation failed", "attempt", state.Attempt, "error", err)
			status.OnGiveUp(err, false)
			return nil, err
		}
		if !state.CanRetry() {
			logging.Warn("backend still overloaded, giving up",
				"attempts", state.Attempt+1,
				"error", err)
			status.OnGiveUp(err, true)
			return nil, err
		}

		delay := CalculateBackoff(r.cfg.BaseDelay, state.Attempt, r.cfg.MaxJitter)
		logging.Warn("backend overloaded, retrying",
			"attempt", state.Attempt+1,
			"max_retries", state.MaxRetries,
			"delay", delay,
			"error", err)
		status.OnRetry(state.Attempt+1, state.MaxRetries, delay, shortReason(err))

		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
		state.Attempt++
	}
}

// Close closes the wrapped client.
func (r *Retrier) Close() error {
	return r.client.Close()
}
