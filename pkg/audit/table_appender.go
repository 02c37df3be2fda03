package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// DefaultTable - таблица аудита по умолчанию
const DefaultTable = "audit_log"

// CreateTable создает таблицу аудита, если ее нет (SQLite, PostgreSQL, MySQL)
func CreateTable(ctx context.Context, conn mapper.Conn, table string) error {
	if table == "" {
		table = DefaultTable
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(64) PRIMARY KEY,
		timestamp TEXT NOT NULL,
		table_name TEXT NOT NULL,
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		record_key TEXT,
		row_count INTEGER,
		duration_ms INTEGER,
		error_message TEXT,
		data TEXT
	)`, table)

	if err := conn.Exec(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// TableAppender сохраняет записи аудита в таблицу через маппер.
// Записываются только колонки, которые есть в схеме таблицы.
// Маппер аудита не должен иметь Logger среди наблюдателей.
type TableAppender struct {
	mapper *mapper.TableMapper
}

// NewTableAppender создает appender поверх маппера таблицы аудита
func NewTableAppender(m *mapper.TableMapper) *TableAppender {
	return &TableAppender{mapper: m}
}

// Append - записать entry в таблицу
func (ta *TableAppender) Append(ctx context.Context, entry *Entry) error {
	row, err := entryRow(entry)
	if err != nil {
		return err
	}

	// Значения кладутся как есть: экранирование BuildModelFrom испортило бы JSON
	rec := ta.mapper.CreateModel()
	for name := range rec {
		if v, ok := row[name]; ok {
			rec[name] = v
		}
	}

	if err := ta.mapper.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close - маппер не владеет соединением, закрывать нечего
func (ta *TableAppender) Close() error {
	return nil
}

func entryRow(e *Entry) (map[string]any, error) {
	row := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"table_name":    e.Table,
		"operation":     string(e.Operation),
		"status":        string(e.Status),
		"record_key":    nil,
		"row_count":     int64(e.RowCount),
		"duration_ms":   e.Duration.Milliseconds(),
		"error_message": nil,
		"data":          nil,
	}
	if e.Key != nil {
		row["record_key"] = fmt.Sprint(e.Key)
	}
	if e.ErrorMessage != "" {
		row["error_message"] = e.ErrorMessage
	}
	if e.Data != nil {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entry data: %w", err)
		}
		row["data"] = string(data)
	}
	return row, nil
}
