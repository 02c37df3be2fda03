package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb" // MS SQL Server driver

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

const (
	// AdapterType is the type identifier for MS SQL Server adapter
	AdapterType = "mssql"

	// driverName selects the go-mssqldb driver that understands @name parameters
	driverName = "sqlserver"

	defaultSchema = "dbo"
)

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

// Adapter implements the adapters.Adapter interface for Microsoft SQL Server.
// Statement parameters are rewritten from :name to @name and passed as sql.Named.
type Adapter struct {
	db     *sql.DB
	config adapters.Config
	schema string
}

func init() {
	// Register MS SQL Server adapter in factory
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Connect implements adapters.Adapter interface.
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.config = cfg
	a.schema = cfg.Schema
	if a.schema == "" {
		a.schema = defaultSchema
	}

	return nil
}

// Close implements adapters.Adapter interface.
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping implements adapters.Adapter interface.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.db.PingContext(ctx)
}

// GetDatabaseType implements adapters.Adapter interface.
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// Schema returns the schema used for introspection (dbo by default).
func (a *Adapter) Schema() string {
	return a.schema
}

// Columns reads INFORMATION_SCHEMA.COLUMNS in ordinal order.
func (a *Adapter) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	query := `
		SELECT COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @schema
		  AND TABLE_NAME = @table
		ORDER BY ORDINAL_POSITION
	`

	rows, err := a.db.QueryContext(ctx, query,
		sql.Named("schema", a.schema),
		sql.Named("table", table),
	)
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

// Exec runs a statement with :name parameters.
func (a *Adapter) Exec(ctx context.Context, query string, args []sql.NamedArg) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}

	rewritten, _ := base.RewriteNamed(query, base.AtName)
	if _, err := a.db.ExecContext(ctx, rewritten, base.NamedArgsAny(args)...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query runs a query with :name parameters and returns every row.
func (a *Adapter) Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error) {
	if a.db == nil {
		return nil, fmt.Errorf("adapter not connected")
	}

	rewritten, _ := base.RewriteNamed(query, base.AtName)
	return base.QueryMaps(ctx, a.db, convertValue, rewritten, base.NamedArgsAny(args)...)
}

// TableExists implements adapters.Adapter interface.
func (a *Adapter) TableExists(ctx context.Context, tableName string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @schema
		  AND TABLE_NAME = @table
	`

	var count int
	err := a.db.QueryRowContext(ctx, query,
		sql.Named("schema", a.schema),
		sql.Named("table", tableName),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return count > 0, nil
}

// GetTableNames implements adapters.Adapter interface.
func (a *Adapter) GetTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @schema
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := a.db.QueryContext(ctx, query, sql.Named("schema", a.schema))
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
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
