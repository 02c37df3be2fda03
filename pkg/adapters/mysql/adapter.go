package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

// AdapterType идентификатор MySQL адаптера
const AdapterType = "mysql"

// Compile-time check: Adapter должен реализовывать интерфейс adapters.Adapter
var _ adapters.Adapter = (*Adapter)(nil)

// Adapter реализует adapters.Adapter для MySQL.
// MySQL не знает именованных параметров: :name переписывается в ?,
// значения передаются позиционно.
type Adapter struct {
	db     *sql.DB
	config adapters.Config
}

func init() {
	// Регистрируем MySQL адаптер в фабрике
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Connect подключается к MySQL базе данных
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Без пула: одно соединение на адаптер
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.config = cfg

	return nil
}

// Close закрывает соединение с базой данных
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping проверяет соединение с базой данных
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.db.PingContext(ctx)
}

// GetDatabaseType возвращает тип адаптера
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetDatabaseVersion возвращает версию MySQL
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	var version string
	err := a.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

// Columns читает колонки текущей базы из information_schema.columns
func (a *Adapter) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	query := `
		SELECT COLUMN_NAME, DATA_TYPE
		FROM information_schema.columns
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := a.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get table schema: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, schema.Column{Name: name, Type: DeclaredType(dataType)})
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

	rewritten, positional, err := rewrite(query, args)
	if err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, rewritten, positional...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query выполняет запрос и возвращает все строки.
// Числа, пришедшие текстом (text protocol), разбираются по типу колонки.
func (a *Adapter) Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	rewritten, positional, err := rewrite(query, args)
	if err != nil {
		return nil, err
	}
	return base.QueryMaps(ctx, a.db, base.NumericConverter, rewritten, positional...)
}

// TableExists проверяет существование таблицы
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
	`

	var count int
	err := a.db.QueryRowContext(ctx, query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}

// GetTableNames возвращает список всех таблиц в базе данных
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return tables, nil
}

// rewrite переводит :name в ? и раскладывает значения по порядку вхождения
func rewrite(query string, args []sql.NamedArg) (string, []any, error) {
	rewritten, names := base.RewriteNamed(query, base.QuestionMark)
	positional, err := base.ArgsInOrder(names, args)
	if err != nil {
		return "", nil, err
	}
	return rewritten, positional, nil
}
