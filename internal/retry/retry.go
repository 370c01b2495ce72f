package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shortform/internal/logging"
	"shortform/internal/services"
)

// Policy bounds how often a stage is attempted. Delay is fixed between
// attempts; there is deliberately no backoff growth.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Work is one unit of stage work. The executor knows nothing about what the
// work does, only whether it failed.
type Work func(ctx context.Context) error

// Fallback produces a substitute result after all attempts fail.
type Fallback func(ctx context.Context) error

// ExhaustedError reports that a stage failed every attempt and no fallback
// was available.
type ExhaustedError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("stage %s exhausted after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Executor runs stage work with bounded fixed-delay retries.
type Executor struct {
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes the executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-attempt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSleeper overrides how inter-attempt delays are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewExecutor constructs a retry executor.
func NewExecutor(opts ...Option) *Executor {
	executor := &Executor{
		logger: logging.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Run executes work up to policy.MaxAttempts times with a fixed delay between
// attempts. Errors marked permanent stop retrying immediately: their cause is
// intrinsic to the request and more attempts cannot change the outcome. After
// exhaustion the fallback, when present, supplies the result; otherwise Run
// returns an ExhaustedError naming the stage and attempt count.
func (e *Executor) Run(ctx context.Context, stage string, policy Policy, work Work, fallback Fallback) error {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = work(ctx)
		if lastErr == nil {
			return nil
		}

		if services.IsPermanent(lastErr) {
			return lastErr
		}

		e.logger.Warn(
			"stage attempt failed",
			logging.String(logging.FieldEventType, "retry_attempt"),
			logging.String(logging.FieldStage, stage),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", policy.MaxAttempts),
			logging.Error(lastErr),
		)

		if attempt < policy.MaxAttempts && policy.Delay > 0 {
			if err := e.sleep(ctx, policy.Delay); err != nil {
				return err
			}
		}
	}

	if fallback != nil {
		e.logger.Info(
			"attempts exhausted, using fallback",
			logging.String(logging.FieldStage, stage),
			logging.Int("attempts", policy.MaxAttempts),
		)
		return fallback(ctx)
	}

	return &ExhaustedError{Stage: stage, Attempts: policy.MaxAttempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
