package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruslano69/tablemapper/pkg/adapters/sqlite"
	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// memoryAppender хранит записи в памяти
type memoryAppender struct {
	entries []*Entry
	err     error
	closed  bool
}

func (m *memoryAppender) Append(_ context.Context, e *Entry) error {
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memoryAppender) Close() error {
	m.closed = true
	return nil
}

func updateEvent() mapper.Event {
	return mapper.Event{
		Table:    "users",
		Op:       mapper.OpUpdate,
		Record:   mapper.Record{"id": int64(1), "name": "Ben"},
		Started:  time.Now(),
		Duration: 2 * time.Millisecond,
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"minimal", LevelMinimal, false},
		{"", LevelStandard, false},
		{"standard", LevelStandard, false},
		{"full", LevelFull, false},
		{"verbose", LevelStandard, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewEntry(t *testing.T) {
	ev := updateEvent()
	ev.Err = errors.New("locked")

	e := NewEntry(ev)
	if e.ID == "" || e.Table != "users" || e.Operation != mapper.OpUpdate {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Status != StatusFailure || e.ErrorMessage != "locked" {
		t.Errorf("failure not recorded: %+v", e)
	}
	if e.Key != int64(1) || e.Data["name"] != "Ben" {
		t.Errorf("key/data not recorded: %+v", e)
	}
}

func TestEntry_FilterByLevel(t *testing.T) {
	e := NewEntry(updateEvent())

	minimal := e.FilterByLevel(LevelMinimal)
	if minimal.Key != nil || minimal.Data != nil {
		t.Error("Minimal level should not include key or data")
	}

	standard := e.FilterByLevel(LevelStandard)
	if standard.Key == nil || standard.Data != nil {
		t.Error("Standard level should include key but not data")
	}

	full := e.FilterByLevel(LevelFull)
	if full.Data["name"] != "Ben" {
		t.Error("Full level should include data")
	}

	if e.Data == nil {
		t.Error("FilterByLevel must not modify the original entry")
	}
}

func TestLogger_Levels(t *testing.T) {
	ctx := context.Background()
	selectEv := mapper.Event{Table: "users", Op: mapper.OpSelect, RowCount: 3}

	tests := []struct {
		level    Level
		expected int
	}{
		{LevelMinimal, 1},
		{LevelStandard, 2},
		{LevelFull, 2},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			app := &memoryAppender{}
			l := NewLogger(LoggerConfig{Level: tt.level}, app)

			l.Observe(ctx, updateEvent())
			l.Observe(ctx, selectEv)

			if len(app.entries) != tt.expected {
				t.Fatalf("expected %d entries, got %d", tt.expected, len(app.entries))
			}
			hasData := app.entries[0].Data != nil
			if hasData != (tt.level == LevelFull) {
				t.Errorf("data present = %v at level %s", hasData, tt.level)
			}
		})
	}
}

func TestLogger_IgnoreTablesAndErrors(t *testing.T) {
	ctx := context.Background()

	var reported []error
	failing := &memoryAppender{err: errors.New("disk full")}
	ok := &memoryAppender{}

	l := NewLogger(LoggerConfig{
		Level:        LevelStandard,
		IgnoreTables: []string{DefaultTable},
		OnError:      func(err error) { reported = append(reported, err) },
	}, failing, ok)

	l.Observe(ctx, mapper.Event{Table: DefaultTable, Op: mapper.OpInsert})
	if len(ok.entries) != 0 {
		t.Fatal("ignored table must not be audited")
	}

	l.Observe(ctx, updateEvent())
	if len(ok.entries) != 1 {
		t.Error("second appender should still receive the entry")
	}
	if len(reported) != 1 || !strings.Contains(reported[0].Error(), "disk full") {
		t.Errorf("expected reported error, got %v", reported)
	}

	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !failing.closed || !ok.closed {
		t.Error("Close should close every appender")
	}
}

func TestFileAppender(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit", "audit.log")

	fa, err := NewFileAppender(FileAppenderConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileAppender failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := fa.Append(ctx, NewEntry(updateEvent())); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := fa.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		if e.Table != "users" {
			t.Errorf("line %d: table = %q", lines, e.Table)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}

	if err := fa.Append(ctx, NewEntry(updateEvent())); err == nil {
		t.Error("Append after Close should fail")
	}
}

func TestFileAppender_Rotate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.log")

	fa, err := NewFileAppender(FileAppenderConfig{Path: path, MaxSize: 10, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileAppender failed: %v", err)
	}
	defer fa.Close()

	// каждая запись больше MaxSize: после первой каждая следующая ротирует файл
	for i := 0; i < 4; i++ {
		if err := fa.Append(ctx, NewEntry(updateEvent())); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup beyond MaxBackups should not exist")
	}
}

func TestTableAppender_WithMapper(t *testing.T) {
	ctx := context.Background()

	adapter, err := sqlite.NewAdapter(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer adapter.Close(ctx)

	if err := CreateTable(ctx, adapter, ""); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := adapter.Exec(ctx, "CREATE TABLE users (id INTEGER, name TEXT)", nil); err != nil {
		t.Fatalf("create users: %v", err)
	}

	auditMapper, err := mapper.New(ctx, adapter, DefaultTable)
	if err != nil {
		t.Fatalf("audit mapper: %v", err)
	}

	logger := NewLogger(LoggerConfig{Level: LevelFull}, NewTableAppender(auditMapper))

	users, err := mapper.New(ctx, adapter, "users", mapper.WithObserver(logger))
	if err != nil {
		t.Fatalf("users mapper: %v", err)
	}

	if err := users.Insert(ctx, mapper.Record{"id": 1, "name": `<"Al">`}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := users.GetAll(ctx); err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	rows, err := auditMapper.GetAll(ctx)
	if err != nil {
		t.Fatalf("audit GetAll failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(rows))
	}

	insert := rows[0]
	if insert["operation"] != "insert" || insert["status"] != "success" || insert["record_key"] != "1" {
		t.Errorf("unexpected insert row: %v", insert)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(insert["data"].(string)), &data); err != nil {
		t.Fatalf("data column is not JSON: %v", err)
	}
	if data["name"] != `<"Al">` {
		t.Errorf("data.name = %v", data["name"])
	}

	if rows[1]["operation"] != "select" || rows[1]["row_count"] != int64(1) {
		t.Errorf("unexpected select row: %v", rows[1])
	}
}
