package mapper

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/tablemapper/pkg/schema"
)

// fakeConn записывает выполненные запросы и отдает заранее заданные строки
type fakeConn struct {
	columns    []schema.Column
	columnsErr error
	rows       []map[string]any
	err        error

	queries []string
	args    [][]sql.NamedArg
}

func (c *fakeConn) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	return c.columns, c.columnsErr
}

func (c *fakeConn) Exec(ctx context.Context, query string, args []sql.NamedArg) error {
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	return c.err
}

func (c *fakeConn) Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error) {
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}

func newFakeConn() *fakeConn {
	return &fakeConn{columns: []schema.Column{
		{Name: "id", Type: schema.TypeInteger},
		{Name: "name", Type: schema.TypeText},
		{Name: "score", Type: schema.TypeReal},
	}}
}

func newTestMapper(t *testing.T, conn *fakeConn, opts ...Option) *TableMapper {
	t.Helper()
	m, err := New(context.Background(), conn, "users", opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func TestNew_SchemaErrors(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("no such database")

	tests := []struct {
		name string
		conn *fakeConn
		is   error
	}{
		{"introspection fails", &fakeConn{columnsErr: cause}, cause},
		{"table has no columns", &fakeConn{}, schema.ErrNoColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.conn, "missing")
			if !IsSchemaError(err) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("expected %v in chain, got %v", tt.is, err)
			}
		})
	}
}

func TestCreateModel(t *testing.T) {
	m := newTestMapper(t, newFakeConn())

	got := m.CreateModel()
	want := Record{"id": int64(0), "name": "", "score": float64(0)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CreateModel() = %v, want %v", got, want)
	}
}

func TestBuildModelFrom(t *testing.T) {
	m := newTestMapper(t, newFakeConn())

	tests := []struct {
		name   string
		input  map[string]any
		fields []string
		want   Record
	}{
		{
			name:  "escapes text",
			input: map[string]any{"name": "<b>Al</b>"},
			want:  Record{"id": int64(0), "name": "&lt;b&gt;Al&lt;/b&gt;", "score": float64(0)},
		},
		{
			name:  "coerces numbers and drops unknown keys",
			input: map[string]any{"id": "42abc", "score": "3.5", "email": "a@b"},
			want:  Record{"id": int64(42), "name": "", "score": 3.5},
		},
		{
			name:   "fields restrict columns",
			input:  map[string]any{"id": 7, "name": "Al", "score": 1.0},
			fields: []string{"name"},
			want:   Record{"id": int64(0), "name": "Al", "score": float64(0)},
		},
		{
			name:  "nil counts as absent",
			input: map[string]any{"name": nil, "id": 3},
			want:  Record{"id": int64(3), "name": "", "score": float64(0)},
		},
		{
			name:   "empty fields fill nothing",
			input:  map[string]any{"name": "Al"},
			fields: []string{},
			want:   Record{"id": int64(0), "name": "", "score": float64(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.BuildModelFrom(tt.input, tt.fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildModelFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateModelFrom(t *testing.T) {
	m := newTestMapper(t, newFakeConn())

	rec := Record{"id": int64(1), "name": "Al", "score": 3.5, "note": "kept"}
	m.UpdateModelFrom(rec, map[string]any{"score": "4", "name": "Ben"}, []string{"score"})

	want := Record{"id": int64(1), "name": "Al", "score": float64(4), "note": "kept"}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("UpdateModelFrom() = %v, want %v", rec, want)
	}
}

func TestValidate(t *testing.T) {
	m := newTestMapper(t, newFakeConn())
	if !m.Validate(Record{}) {
		t.Error("default validator should accept any record")
	}

	strict := newTestMapper(t, newFakeConn(), WithValidator(ValidatorFunc(func(rec Record) bool {
		name, _ := rec["name"].(string)
		return name != ""
	})))
	if strict.Validate(Record{"name": ""}) {
		t.Error("custom validator should reject empty name")
	}
	if !strict.Validate(Record{"name": "Al"}) {
		t.Error("custom validator should accept name")
	}
}

func TestCRUD_SQLAndArgs(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	m := newTestMapper(t, conn)

	rec := Record{"id": int64(1), "name": "Al", "score": 3.5}

	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := m.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.Delete(ctx, rec); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	wantSQL := []string{
		"INSERT INTO users VALUES(:id,:name,:score)",
		"UPDATE users SET name = :name, score = :score WHERE id = :id",
		"DELETE FROM users WHERE id = :id",
	}
	if !reflect.DeepEqual(conn.queries, wantSQL) {
		t.Errorf("queries = %q, want %q", conn.queries, wantSQL)
	}

	if len(conn.args[2]) != 1 || conn.args[2][0].Name != "id" {
		t.Errorf("delete should bind only id, got %+v", conn.args[2])
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		rows []map[string]any
		want Record
	}{
		{"no rows", []map[string]any{}, nil},
		{"one row", []map[string]any{{"id": int64(1), "name": "Al"}}, Record{"id": int64(1), "name": "Al"}},
		{"several rows", []map[string]any{{"id": int64(1)}, {"id": int64(1)}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			conn.rows = tt.rows
			m := newTestMapper(t, conn)

			got, err := m.Get(ctx, 1)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
			if conn.queries[0] != "SELECT * FROM users WHERE id = :id" {
				t.Errorf("query = %q", conn.queries[0])
			}
		})
	}
}

func TestPersistenceError(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("UNIQUE constraint failed")

	conn := newFakeConn()
	conn.err = cause
	m := newTestMapper(t, conn)

	err := m.Insert(ctx, Record{"id": 1, "name": "Al", "score": 1.0})

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if pe.Op != OpInsert || pe.Table != "users" || !errors.Is(err, cause) {
		t.Errorf("unexpected error: %+v", pe)
	}

	if _, err := m.GetAll(ctx); !IsPersistenceError(err) {
		t.Errorf("GetAll should return PersistenceError, got %v", err)
	}
}

func TestMissingParam(t *testing.T) {
	conn := newFakeConn()
	m := newTestMapper(t, conn)

	err := m.Update(context.Background(), Record{"name": "Al", "score": 1.0})
	if !IsPersistenceError(err) || !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected PersistenceError wrapping ErrMissingParam, got %v", err)
	}
	if len(conn.queries) != 0 {
		t.Error("statement must not reach the connection")
	}
}

func TestSelect_FilterWithoutColumns(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Record
	}{
		{"misspelled key", Record{"nmae": "nobody"}},
		{"nil key value", Record{"id": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			conn.rows = []map[string]any{{"id": int64(1)}, {"id": int64(2)}}
			m := newTestMapper(t, conn)

			rows, err := m.Select(ctx, tt.filter)
			if !IsPersistenceError(err) || !errors.Is(err, ErrEmptyFilter) {
				t.Fatalf("expected PersistenceError wrapping ErrEmptyFilter, got rows=%v err=%v", rows, err)
			}
			if rows != nil {
				t.Errorf("expected no rows, got %v", rows)
			}
			if len(conn.queries) != 0 {
				t.Error("statement must not reach the connection")
			}
		})
	}

	if _, err := newTestMapper(t, newFakeConn()).Get(ctx, nil); !errors.Is(err, ErrEmptyFilter) {
		t.Errorf("Get(nil) should fail with ErrEmptyFilter, got %v", err)
	}
}

func TestObservers(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	conn.rows = []map[string]any{{"id": int64(1)}, {"id": int64(2)}}

	var events []Event
	m := newTestMapper(t, conn, WithObserver(nil, ObserverFunc(func(_ context.Context, ev Event) {
		events = append(events, ev)
	})))

	rec := Record{"id": int64(1), "name": "Al", "score": 1.0}
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	rec["name"] = "changed"

	if _, err := m.GetAll(ctx); err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	conn.err = errors.New("boom")
	_ = m.Delete(ctx, Record{"id": int64(1)})

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	if events[0].Op != OpInsert || events[0].Record["name"] != "Al" || events[0].Failed() {
		t.Errorf("insert event: %+v", events[0])
	}
	if events[1].Op != OpSelect || events[1].RowCount != 2 {
		t.Errorf("select event: %+v", events[1])
	}
	if events[2].Op != OpDelete || !events[2].Failed() || events[2].Table != "users" {
		t.Errorf("delete event: %+v", events[2])
	}
}
