package mysql

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
		mysqlType string
		expected  schema.DeclaredType
	}{
		{"int", schema.TypeInteger},
		{"BIGINT", schema.TypeInteger},
		{"int unsigned", schema.TypeInteger},
		{"tinyint(1)", schema.TypeInteger},
		{"double", schema.TypeReal},
		{"float", schema.TypeReal},
		{"varchar", schema.TypeText},
		{"longtext", schema.TypeText},
		{"decimal", schema.TypeOther},
		{"datetime", schema.TypeOther},
		{"blob", schema.TypeOther},
	}

	for _, tt := range tests {
		if got := DeclaredType(tt.mysqlType); got != tt.expected {
			t.Errorf("DeclaredType(%q) = %s, want %s", tt.mysqlType, got, tt.expected)
		}
	}
}

func TestRewrite(t *testing.T) {
	query, args, err := rewrite("UPDATE users SET name = :name WHERE id = :id", []sql.NamedArg{
		sql.Named("id", 7),
		sql.Named("name", "Ben"),
	})
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	if query != "UPDATE users SET name = ? WHERE id = ?" {
		t.Errorf("query = %q", query)
	}
	if len(args) != 2 || args[0] != "Ben" || args[1] != 7 {
		t.Errorf("args = %v", args)
	}
}

func TestRewrite_MissingArg(t *testing.T) {
	if _, _, err := rewrite("DELETE FROM users WHERE id = :id", nil); err == nil {
		t.Error("expected error for missing :id")
	}
}

// TestIntegration_CRUD проверяет адаптер на живом MySQL.
// Запускается только если задан TABLEMAPPER_MYSQL_DSN.
func TestIntegration_CRUD(t *testing.T) {
	dsn := os.Getenv("TABLEMAPPER_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TABLEMAPPER_MYSQL_DSN not set")
	}

	ctx := context.Background()
	adapter, err := adapters.New(ctx, adapters.Config{Type: AdapterType, DSN: dsn})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	defer adapter.Close(ctx)

	const table = "tablemapper_it_users"
	db := adapter.(*Adapter).db
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE "+table+" (id INT PRIMARY KEY, name TEXT, score DOUBLE)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)

	cols, err := adapter.Columns(ctx, table)
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	if len(cols) != 3 || cols[0].Type != schema.TypeInteger || cols[1].Type != schema.TypeText {
		t.Fatalf("unexpected columns: %+v", cols)
	}

	err = adapter.Exec(ctx, "INSERT INTO "+table+" VALUES(:id,:name,:score)", []sql.NamedArg{
		sql.Named("id", 1), sql.Named("name", "Al"), sql.Named("score", 3.5),
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	rows, err := adapter.Query(ctx, "SELECT * FROM "+table, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Al" || rows[0]["id"] != int64(1) {
		t.Errorf("unexpected rows: %v", rows)
	}
}
