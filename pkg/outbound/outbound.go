// Package outbound paces and retries calls to the chat platform so business
// code never sleeps between requests itself.
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/hackbot/pkg/config"
	"github.com/angelmondragon/hackbot/pkg/logger"
	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const defaultInitialInterval = 250 * time.Millisecond

// Recorder receives one observation per logical call (all attempts included).
type Recorder interface {
	ObserveOutbound(call string, err error, duration time.Duration)
}

// Classifier reports whether a failed attempt may be retried.
type Classifier func(error) bool

// Executor runs outbound calls through a shared token bucket with exponential backoff.
type Executor struct {
	limiter         *rate.Limiter
	maxTries        uint
	maxElapsed      time.Duration
	callTimeout     time.Duration
	initialInterval time.Duration
	retryable       Classifier
	recorder        Recorder
	logg            *logger.Logger
}

// Option customises an Executor.
type Option func(*Executor)

// WithClassifier replaces the default retry classification.
func WithClassifier(c Classifier) Option {
	return func(e *Executor) {
		if c != nil {
			e.retryable = c
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithLogger attaches a logger used for retry notices.
func WithLogger(l *logger.Logger) Option {
	return func(e *Executor) { e.logg = l }
}

// WithInitialInterval overrides the first backoff delay.
func WithInitialInterval(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.initialInterval = d
		}
	}
}

// New builds an executor from the outbound config section.
func New(cfg config.OutboundConfig, opts ...Option) *Executor {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	e := &Executor{
		limiter:         rate.NewLimiter(limit, burst),
		maxTries:        cfg.MaxRetries + 1,
		maxElapsed:      cfg.MaxElapsed,
		callTimeout:     cfg.CallTimeout,
		initialInterval: defaultInitialInterval,
		retryable:       DefaultRetryable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultRetryable retries everything except cancellations and errors wrapped by Permanent.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn under the executor's pacing and retry policy.
func (e *Executor) Do(ctx context.Context, call string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, e, call, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for operations that return a value.
func Call[T any](ctx context.Context, e *Executor, call string, fn func(ctx context.Context) (T, error)) (T, error) {
	started := time.Now()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.initialInterval

	attempt := func() (T, error) {
		var zero T
		if err := e.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}
		callCtx := ctx
		if e.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
			defer cancel()
		}
		res, err := fn(callCtx)
		if err != nil && !e.retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(e.maxTries),
		backoff.WithMaxElapsedTime(e.maxElapsed),
	}
	if e.logg != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			retryCtx := e.logg.WithFields(ctx, map[string]any{"call": call, "retry_in": wait.String()})
			e.logg.WarnErr(retryCtx, "outbound call failed, retrying", err)
		}))
	}

	res, err := backoff.Retry(ctx, attempt, opts...)
	if e.recorder != nil {
		e.recorder.ObserveOutbound(call, err, time.Since(started))
	}
	return res, err
}
