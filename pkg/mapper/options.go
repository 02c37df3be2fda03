package mapper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Op - тип операции маппера
type Op string

const (
	OpInsert Op = "insert"
	OpSelect Op = "select"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event описывает завершенную CRUD операцию
type Event struct {
	Table    string
	Op       Op
	Record   Record // запись (insert/update/delete) или фильтр (select)
	RowCount int    // число строк, возвращенных select
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Failed сообщает, завершилась ли операция ошибкой
func (e Event) Failed() bool {
	return e.Err != nil
}

// Observer получает уведомление после каждой CRUD операции.
// Вызывается синхронно и не может повлиять на результат операции.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc - адаптер функции к Observer
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Validator - стратегия проверки записи
type Validator interface {
	Validate(rec Record) bool
}

// ValidatorFunc - адаптер функции к Validator
type ValidatorFunc func(rec Record) bool

func (f ValidatorFunc) Validate(rec Record) bool {
	return f(rec)
}

// AlwaysValid - стратегия по умолчанию, принимает любую запись
var AlwaysValid Validator = ValidatorFunc(func(Record) bool { return true })

// Option настраивает TableMapper
type Option func(*TableMapper)

// WithLogger задает логгер (по умолчанию zerolog.Nop)
func WithLogger(logger zerolog.Logger) Option {
	return func(m *TableMapper) {
		m.logger = logger
	}
}

// WithValidator задает стратегию проверки записей
func WithValidator(v Validator) Option {
	return func(m *TableMapper) {
		if v != nil {
			m.validator = v
		}
	}
}

// WithObserver добавляет наблюдателей за операциями
func WithObserver(observers ...Observer) Option {
	return func(m *TableMapper) {
		for _, o := range observers {
			if o != nil {
				m.observers = append(m.observers, o)
			}
		}
	}
}
