package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruslano69/tablemapper/pkg/resilience"
	"github.com/ruslano69/tablemapper/pkg/retry"
)

// DeliveryConfig - повторы, circuit breaker и DLQ для публикации.
// Нулевые секции отключены.
type DeliveryConfig struct {
	Retry   retry.Config      `yaml:"retry"`
	Breaker resilience.Config `yaml:"breaker"` // max_failures = 0 - без breaker
	DLQ     retry.DLQConfig   `yaml:"dlq"`     // пустой path - без DLQ
}

// Reliable оборачивает Publisher: повторяет неудачную публикацию, при серии
// сбоев перестает обращаться к брокеру, а недоставленные события сохраняет в DLQ.
type Reliable struct {
	inner   Publisher
	retryer *retry.Retryer
	breaker *resilience.CircuitBreaker
	dlq     *retry.DLQ
}

var _ Publisher = (*Reliable)(nil)

// NewReliable создает обертку над inner
func NewReliable(inner Publisher, cfg DeliveryConfig) (*Reliable, error) {
	retryer, err := retry.New(cfg.Retry)
	if err != nil {
		return nil, err
	}

	r := &Reliable{inner: inner, retryer: retryer}

	if cfg.Breaker.MaxFailures > 0 {
		if cfg.Breaker.Name == "" {
			cfg.Breaker.Name = "events"
		}
		if r.breaker, err = resilience.New(cfg.Breaker); err != nil {
			return nil, err
		}
	}

	if cfg.DLQ.Path != "" {
		if r.dlq, err = retry.NewDLQ(cfg.DLQ); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Publish отправляет событие. Если доставка не удалась и DLQ настроен,
// событие сохраняется в DLQ, а ошибка все равно возвращается.
func (r *Reliable) Publish(ctx context.Context, ev ChangeEvent) error {
	attempts := 0
	send := func(ctx context.Context) error {
		return r.retryer.Do(ctx, func(ctx context.Context) error {
			attempts++
			return r.inner.Publish(ctx, ev)
		})
	}

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}
	if err == nil {
		return nil
	}

	if r.dlq != nil {
		if dlqErr := r.dlq.Add(retry.DLQEntry{
			Attempts:  attempts,
			LastError: err.Error(),
			Reason:    failureReason(err),
			Data:      ev,
		}); dlqErr != nil {
			return errors.Join(err, dlqErr)
		}
	}
	return fmt.Errorf("event %s not delivered: %w", ev.ID, err)
}

// DLQ возвращает очередь недоставленных событий (nil, если не настроена)
func (r *Reliable) DLQ() *retry.DLQ {
	return r.dlq
}

// Close закрывает обернутый Publisher
func (r *Reliable) Close() error {
	return r.inner.Close()
}

func failureReason(err error) string {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &exhausted):
		return "max_attempts_exceeded"
	default:
		return "failed"
	}
}
