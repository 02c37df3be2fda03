// Package retry повторяет операции с задержкой и сохраняет окончательно
// неудавшиеся данные в Dead Letter Queue.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Func - операция, которую можно повторить
type Func func(ctx context.Context) error

// Retryer выполняет Func с повторами по Config
type Retryer struct {
	config Config
}

// New создает Retryer
func New(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do выполняет fn, пока она не завершится успешно, не вернет Permanent-ошибку,
// не исчерпает попытки или не отменится ctx
func (r *Retryer) Do(ctx context.Context, fn Func) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if r.config.MaxAttempts <= 1 {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// delay вычисляет задержку после попытки attempt (начиная с 1)
func (r *Retryer) delay(attempt int) time.Duration {
	var d time.Duration

	switch r.config.Backoff {
	case BackoffConstant:
		d = r.config.InitialDelay
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	default:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}

	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		d += time.Duration(float64(d) * r.config.Jitter * (rand.Float64()*2 - 1))
		if d < 0 {
			d = r.config.InitialDelay
		}
	}
	return d
}

// ExhaustedError - все попытки неудачны
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("max retry attempts (%d) exceeded: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку как неповторяемую: Do вернет ее сразу
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
