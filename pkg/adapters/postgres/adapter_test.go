package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

func TestDeclaredType(t *testing.T) {
	tests := []struct {
		pgType   string
		expected schema.DeclaredType
	}{
		{"integer", schema.TypeInteger},
		{"bigint", schema.TypeInteger},
		{"SMALLINT", schema.TypeInteger},
		{"double precision", schema.TypeReal},
		{"real", schema.TypeReal},
		{"text", schema.TypeText},
		{"character varying(100)", schema.TypeText},
		{"numeric", schema.TypeOther},
		{"boolean", schema.TypeOther},
		{"timestamp with time zone", schema.TypeOther},
	}

	for _, tt := range tests {
		if got := DeclaredType(tt.pgType); got != tt.expected {
			t.Errorf("DeclaredType(%q) = %s, want %s", tt.pgType, got, tt.expected)
		}
	}
}

func TestRewrite(t *testing.T) {
	query, named := rewrite("UPDATE users SET name = :name WHERE id = :id", []sql.NamedArg{
		sql.Named("name", "Ben"),
		sql.Named("id", 1),
	})

	if query != "UPDATE users SET name = @name WHERE id = @id" {
		t.Errorf("query = %q", query)
	}
	if named["name"] != "Ben" || named["id"] != 1 {
		t.Errorf("named = %v", named)
	}
}

func TestNormalizeValue(t *testing.T) {
	if v := normalizeValue(int32(5)); v != int64(5) {
		t.Errorf("int32 → %#v", v)
	}
	if v := normalizeValue(float32(1.5)); v != float64(1.5) {
		t.Errorf("float32 → %#v", v)
	}
	if v := normalizeValue("x"); v != "x" {
		t.Errorf("string → %#v", v)
	}
}

// TestIntegration_CRUD проверяет адаптер на живом PostgreSQL.
// Запускается только если задан TABLEMAPPER_POSTGRES_DSN.
func TestIntegration_CRUD(t *testing.T) {
	dsn := os.Getenv("TABLEMAPPER_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TABLEMAPPER_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	adapter, err := adapters.New(ctx, adapters.Config{Type: "postgres", DSN: dsn})
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	defer adapter.Close(ctx)

	const table = "tablemapper_it_users"
	pg := adapter.(*Adapter)
	if _, err := pg.conn.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := pg.conn.Exec(ctx, "CREATE TABLE "+table+" (id integer primary key, name text, score double precision)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer pg.conn.Exec(ctx, "DROP TABLE IF EXISTS "+table)

	cols, err := adapter.Columns(ctx, table)
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	if len(cols) != 3 || cols[0].Type != schema.TypeInteger || cols[2].Type != schema.TypeReal {
		t.Fatalf("unexpected columns: %+v", cols)
	}

	err = adapter.Exec(ctx, "INSERT INTO "+table+" VALUES(:id,:name,:score)", []sql.NamedArg{
		sql.Named("id", 1), sql.Named("name", "Al"), sql.Named("score", 3.5),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	rows, err := adapter.Query(ctx, "SELECT * FROM "+table+" WHERE id = :id", []sql.NamedArg{sql.Named("id", 1)})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Al" || rows[0]["id"] != int64(1) {
		t.Errorf("unexpected rows: %v", rows)
	}
}
