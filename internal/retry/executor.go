package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Executor runs an operation, retrying transient failures with backoff.
//
// WithOnRetry and WithRecover return configured copies; the receiver is never
// modified, so a shared Executor is safe for concurrent use.
type Executor struct {
	classifier imdbload.ErrorClassifier
	strategy   imdbload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
	recover    func(ctx context.Context, err error) error
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier imdbload.ErrorClassifier, strategy imdbload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy that calls callback before each retry.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// WithRecover returns a copy that runs fn after the backoff delay and before
// each retry, e.g. to reopen a connection pool. If fn fails, Execute stops and
// returns both errors.
func (e *Executor) WithRecover(fn func(ctx context.Context, err error) error) *Executor {
	clone := *e
	clone.recover = fn
	return &clone
}

// Execute runs operation until it succeeds, fails fatally, the retries are
// exhausted or ctx is done. The last error is returned.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	maxAttempts := e.strategy.MaxAttempts()
	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if e.recover != nil {
			if err := e.recover(ctx, lastErr); err != nil {
				return errors.Join(lastErr, fmt.Errorf("recovery failed: %w", err))
			}
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
