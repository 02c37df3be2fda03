package audit

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// Level - уровень детализации аудита
type Level int

const (
	// LevelMinimal - только изменения (insert/update/delete), без ключа и данных
	LevelMinimal Level = iota

	// LevelStandard - все операции, включая select, с ключом записи
	LevelStandard

	// LevelFull - как Standard плюс содержимое записи или фильтра
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel разбирает уровень из конфигурации
func ParseLevel(s string) (Level, error) {
	switch s {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level: %s", s)
	}
}

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry - запись в audit логе
type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Table        string         `json:"table"`
	Operation    mapper.Op      `json:"operation"`
	Status       Status         `json:"status"`
	Key          any            `json:"key,omitempty"`
	RowCount     int            `json:"row_count,omitempty"` // строк вернул select
	Duration     time.Duration  `json:"duration,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Data         map[string]any `json:"data,omitempty"` // только для LevelFull
}

// NewEntry строит запись по событию маппера
func NewEntry(ev mapper.Event) *Entry {
	entry := &Entry{
		ID:        uuid.NewString(),
		Timestamp: ev.Started,
		Table:     ev.Table,
		Operation: ev.Op,
		Status:    StatusSuccess,
		Key:       ev.Record[mapper.KeyColumn],
		RowCount:  ev.RowCount,
		Duration:  ev.Duration,
		Data:      maps.Clone(ev.Record),
	}
	if ev.Err != nil {
		entry.Status = StatusFailure
		entry.ErrorMessage = ev.Err.Error()
	}
	return entry
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - строковое представление
func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s %s (key=%v, rows=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Table,
		e.Operation,
		e.Status,
		e.Key,
		e.RowCount,
		e.Duration,
	)
}

// FilterByLevel возвращает копию записи без полей, не положенных уровню
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := *e

	switch level {
	case LevelMinimal:
		filtered.Key = nil
		filtered.Data = nil
	case LevelStandard:
		filtered.Data = nil
	case LevelFull:
		filtered.Data = maps.Clone(e.Data)
	}

	return &filtered
}
