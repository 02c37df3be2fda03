package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Регистрация адаптера в глобальной фабрике
func init() {
	adapters.Register("postgres", func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter представляет адаптер для работы с PostgreSQL.
// Использует одно соединение pgx.Conn (без пула); доступ к нему
// сериализуется мьютексом.
type Adapter struct {
	mu     sync.Mutex
	conn   *pgx.Conn
	schema string // public, custom, etc.
}

// Connect устанавливает подключение к PostgreSQL
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.conn = conn
	a.schema = cfg.Schema
	if a.schema == "" {
		a.schema = "public"
	}

	return nil
}

// Close закрывает соединение
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return a.conn.Close(ctx)
	}
	return nil
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.conn.Ping(ctx)
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return "postgres"
}

// Schema возвращает текущую схему
func (a *Adapter) Schema() string {
	return a.schema
}

// Columns читает колонки из information_schema.columns в порядке ordinal_position
func (a *Adapter) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	rows, err := a.conn.Query(ctx, query, a.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get table schema: %w", err)
	}

	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.Column, error) {
		var name, dataType string
		if err := row.Scan(&name, &dataType); err != nil {
			return schema.Column{}, err
		}
		return schema.Column{Name: name, Type: DeclaredType(dataType)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan column info: %w", err)
	}

	return columns, nil
}

// Exec выполняет запрос: параметры :name передаются как pgx.NamedArgs (@name)
func (a *Adapter) Exec(ctx context.Context, query string, args []sql.NamedArg) error {
	rewritten, named := rewrite(query, args)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return fmt.Errorf("adapter not connected")
	}
	if _, err := a.conn.Exec(ctx, rewritten, named); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query выполняет запрос и возвращает все строки
func (a *Adapter) Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error) {
	rewritten, named := rewrite(query, args)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	rows, err := a.conn.Query(ctx, rewritten, named)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	for _, row := range result {
		for k, v := range row {
			row[k] = normalizeValue(v)
		}
	}
	return result, nil
}

// TableExists проверяет существование таблицы в текущей схеме
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1
			  AND table_name = $2
		)
	`

	a.mu.Lock()
	defer a.mu.Unlock()

	var exists bool
	err := a.conn.QueryRow(ctx, query, a.schema, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return exists, nil
}

// GetTableNames возвращает список всех таблиц в текущей схеме
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.conn.Query(ctx, query, a.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// rewrite переводит :name в @name и собирает pgx.NamedArgs
func rewrite(query string, args []sql.NamedArg) (string, pgx.NamedArgs) {
	rewritten, _ := base.RewriteNamed(query, base.AtName)

	named := make(pgx.NamedArgs, len(args))
	for _, arg := range args {
		named[arg.Name] = arg.Value
	}
	return rewritten, named
}
