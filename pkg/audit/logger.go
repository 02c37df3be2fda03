package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// LoggerConfig - конфигурация логгера
type LoggerConfig struct {
	// Level - уровень детализации
	Level Level

	// IgnoreTables - таблицы, операции над которыми не аудируются
	// (например, сама таблица аудита)
	IgnoreTables []string

	// OnError - callback при ошибке записи. По умолчанию ошибка пишется в Log.
	OnError func(error)

	// Log - логгер для ошибок записи (по умолчанию zerolog.Nop)
	Log zerolog.Logger
}

// Logger - синхронный audit logger, подключаемый к мапперу как наблюдатель
type Logger struct {
	mu        sync.RWMutex
	appenders []Appender
	config    LoggerConfig
	ignore    map[string]struct{}
}

var _ mapper.Observer = (*Logger)(nil)

// NewLogger - создать новый audit logger
func NewLogger(config LoggerConfig, appenders ...Appender) *Logger {
	l := &Logger{
		appenders: appenders,
		config:    config,
		ignore:    make(map[string]struct{}, len(config.IgnoreTables)),
	}
	for _, t := range config.IgnoreTables {
		l.ignore[t] = struct{}{}
	}
	return l
}

// Level возвращает уровень детализации
func (l *Logger) Level() Level {
	return l.config.Level
}

// Observe реализует mapper.Observer
func (l *Logger) Observe(ctx context.Context, ev mapper.Event) {
	if _, skip := l.ignore[ev.Table]; skip {
		return
	}
	// Minimal: только изменения
	if l.config.Level == LevelMinimal && ev.Op == mapper.OpSelect {
		return
	}

	if err := l.Log(ctx, NewEntry(ev)); err != nil {
		l.handleError(err)
	}
}

// Log фильтрует запись по уровню и передает во все appenders
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(l.config.Level)

	l.mu.RLock()
	defer l.mu.RUnlock()

	return NewMultiAppender(l.appenders...).Append(ctx, filtered)
}

// AddAppender - добавить appender
func (l *Logger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

// Close закрывает все appenders
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return NewMultiAppender(l.appenders...).Close()
}

func (l *Logger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
		return
	}
	l.config.Log.Error().Err(err).Msg("audit write failed")
}
