package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

const driverSqlite = "sqlite"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Регистрация адаптера в глобальной фабрике
func init() {
	adapters.Register("sqlite", func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter представляет адаптер для работы с SQLite.
// SQLite понимает параметры :name нативно, переписывать запросы не нужно.
type Adapter struct {
	db *sql.DB
}

// Connect устанавливает подключение к SQLite
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open(driverSqlite, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение: база ":memory:" живет ровно столько, сколько соединение
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.applyPragmas(ctx)

	return nil
}

// NewAdapter открывает файл (или ":memory:") без фабрики
func NewAdapter(ctx context.Context, dsn string) (*Adapter, error) {
	adapter := &Adapter{}
	if err := adapter.Connect(ctx, adapters.Config{Type: "sqlite", DSN: dsn}); err != nil {
		return nil, err
	}
	return adapter, nil
}

// Close закрывает соединение с БД
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping проверяет доступность БД
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.db.PingContext(ctx)
}

// GetDatabaseType возвращает тип СУБД
func (a *Adapter) GetDatabaseType() string {
	return "sqlite"
}

// DB возвращает *sql.DB для прямого доступа (создание таблиц в тестах, миграции снаружи)
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// applyPragmas включает настройки соединения. Ошибки не фатальны:
// например, journal_mode = WAL не применяется к ":memory:".
func (a *Adapter) applyPragmas(ctx context.Context) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := a.db.ExecContext(ctx, pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("sqlite pragma failed")
		}
	}
}

// Columns читает колонки через PRAGMA table_info.
// Тип колонки берется из объявления как есть: TEXT, INTEGER, REAL,
// все остальное - OTHER. Для несуществующей таблицы возвращается пустой список.
func (a *Adapter) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to get table info: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		columns = append(columns, schema.Column{
			Name: name,
			Type: schema.ParseDeclaredType(dataType),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// Exec выполняет запрос с параметрами :name
func (a *Adapter) Exec(ctx context.Context, query string, args []sql.NamedArg) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}
	if _, err := a.db.ExecContext(ctx, query, base.NamedArgsAny(args)...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query выполняет запрос и возвращает все строки
func (a *Adapter) Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}
	return base.QueryMaps(ctx, a.db, nil, query, base.NamedArgsAny(args)...)
}

// TableExists проверяет существование таблицы
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type='table' AND name=?
	`

	var count int
	err := a.db.QueryRowContext(ctx, query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}

// GetTableNames возвращает список всех таблиц в БД
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}
