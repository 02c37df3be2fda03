package base

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Querier - общий интерфейс *sql.DB, *sql.Conn и *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ValueConverter приводит значение драйвера с учетом типа колонки
// (DatabaseTypeName, в верхнем регистре)
type ValueConverter func(dbType string, v any) any

// QueryMaps выполняет запрос и читает все строки как name → value
func QueryMaps(ctx context.Context, q Querier, conv ValueConverter, query string, args ...any) ([]map[string]any, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return ScanMaps(rows, conv)
}

// ScanMaps читает все строки результата. Без конвертера []byte превращается
// в string, остальные значения остаются такими, как их вернул драйвер.
func ScanMaps(rows *sql.Rows, conv ValueConverter) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	dbTypes := make([]string, len(columns))
	if conv != nil {
		columnTypes, err := rows.ColumnTypes()
		if err != nil {
			return nil, fmt.Errorf("failed to get column types: %w", err)
		}
		for i, ct := range columnTypes {
			dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	} else {
		conv = func(_ string, v any) any { return NormalizeValue(v) }
	}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	result := []map[string]any{}
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = conv(dbTypes[i], values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	return result, nil
}

// NormalizeValue приводит значение драйвера к виду, удобному для записи:
// []byte копируется в string, остальное не меняется
func NormalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// NumericConverter - конвертер для драйверов, отдающих числа текстом:
// целочисленные типы разбираются в int64, вещественные - в float64.
// Если разбор не удался, возвращается строка.
func NumericConverter(dbType string, v any) any {
	v = NormalizeValue(v)
	s, ok := v.(string)
	if !ok {
		return v
	}

	switch dbType {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
