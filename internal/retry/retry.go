// Package retry runs a call with exponential backoff until it succeeds, fails
// with a non-retryable error, runs out of attempts, or is cancelled.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"setka/internal/infra"
	"setka/internal/providers/image"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 2000 * time.Millisecond
)

// ErrCancelled is returned when the canceller or the context fires before a
// retry could run.
var ErrCancelled = errors.New("retry: cancelled")

// ExhaustedError wraps the last failure once every attempt is spent. It is
// terminal: image.Classify never reports it as retryable.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Terminal marks the error as final for image.Classify.
func (e *ExhaustedError) Terminal() bool { return true }

// State describes the attempt in flight. It lives for one Do call.
type State struct {
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay is the backoff after a failed attempt: BaseDelay * 2^(Attempt-1).
func (s State) Delay() time.Duration {
	if s.Attempt < 1 {
		return s.BaseDelay
	}
	return s.BaseDelay << (s.Attempt - 1)
}

// Canceller is a cooperative stop signal, such as a batch cancel token.
type Canceller interface {
	Cancelled() bool
	Done() <-chan struct{}
}

// Sleeper waits for d, returning early with an error when ctx ends or stop
// closes.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration, stop <-chan struct{}) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration, stop <-chan struct{}) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration, stop <-chan struct{}) error {
	return f(ctx, d, stop)
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration, stop <-chan struct{}) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return ErrCancelled
	}
}

type config struct {
	maxAttempts int
	baseDelay   time.Duration
	sleeper     Sleeper
	classify    func(error) bool
	jitter      float64
	logger      *infra.Logger
	canceller   Canceller
	onRetry     func(State, error, time.Duration)
}

// Option tunes Do.
type Option func(*config)

// WithMaxAttempts caps the number of calls, including the first.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *config) {
		if s != nil {
			c.sleeper = s
		}
	}
}

// WithClassifier decides which errors are retried. The default retries what
// image.Classify marks retryable.
func WithClassifier(fn func(error) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.classify = fn
		}
	}
}

// WithJitter adds up to fraction*delay of random extra wait. Off by default.
func WithJitter(fraction float64) Option {
	return func(c *config) {
		if fraction >= 0 && fraction <= 1 {
			c.jitter = fraction
		}
	}
}

// WithLogger logs each scheduled retry at warn level.
func WithLogger(l *infra.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCanceller observes a cooperative stop signal between attempts.
func WithCanceller(cn Canceller) Option {
	return func(c *config) { c.canceller = cn }
}

// WithOnRetry is called before every backoff sleep.
func WithOnRetry(fn func(State, error, time.Duration)) Option {
	return func(c *config) { c.onRetry = fn }
}

// Do invokes call until it returns a nil or non-retryable error. Attempt 1
// runs immediately; a retryable failure sleeps State.Delay before the next.
// After the last attempt the failure comes back as *ExhaustedError.
func Do[T any](ctx context.Context, call func(context.Context) (T, error), opts ...Option) (T, error) {
	cfg := config{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleeper:     TimerSleeper{},
		classify:    image.IsRetryable,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := infra.OrNop(cfg.logger)

	var zero T
	var stop <-chan struct{}
	if cfg.canceller != nil {
		stop = cfg.canceller.Done()
	}

	st := State{MaxAttempts: cfg.maxAttempts, BaseDelay: cfg.baseDelay}
	for st.Attempt = 1; ; st.Attempt++ {
		if cfg.cancelled(ctx) {
			return zero, ErrCancelled
		}
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}
		if !cfg.classify(err) {
			return zero, err
		}
		if st.Attempt >= st.MaxAttempts {
			return zero, &ExhaustedError{Attempts: st.Attempt, Last: err}
		}

		delay := cfg.withJitter(st.Delay())
		logger.Warn().
			Err(err).
			Int("attempt", st.Attempt).
			Int("max_attempts", st.MaxAttempts).
			Dur("delay", delay).
			Msg("retry: retryable failure, backing off")
		if cfg.onRetry != nil {
			cfg.onRetry(st, err, delay)
		}
		if err := cfg.sleeper.Sleep(ctx, delay, stop); err != nil {
			return zero, ErrCancelled
		}
	}
}

func (c config) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return c.canceller != nil && c.canceller.Cancelled()
}

func (c config) withJitter(d time.Duration) time.Duration {
	if c.jitter == 0 || d <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*c.jitter*float64(d))
}
