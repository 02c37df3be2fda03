package mssql

import (
	"strings"

	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

// Type mapping for MS SQL Server
//
// SQL Server Type              Mapper Type
// ────────────────────────────────────────
// TINYINT, SMALLINT, INT,      INTEGER
// BIGINT
// FLOAT, REAL                  REAL
// CHAR, VARCHAR, NCHAR,        TEXT
// NVARCHAR, TEXT, NTEXT
// everything else              OTHER (DECIMAL, MONEY, BIT, dates, ...)

// DeclaredType converts a DATA_TYPE value to the mapper column type.
func DeclaredType(sqlType string) schema.DeclaredType {
	sqlType = strings.ToUpper(strings.TrimSpace(sqlType))
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = strings.TrimSpace(sqlType[:idx])
	}

	switch sqlType {
	case "TINYINT", "SMALLINT", "INT", "BIGINT":
		return schema.TypeInteger
	case "FLOAT", "REAL":
		return schema.TypeReal
	case "CHAR", "VARCHAR", "NCHAR", "NVARCHAR", "TEXT", "NTEXT":
		return schema.TypeText
	default:
		return schema.TypeOther
	}
}

// convertValue normalizes driver values: float32 (REAL) widens to float64,
// DECIMAL/MONEY bytes become strings.
func convertValue(_ string, v any) any {
	if f, ok := v.(float32); ok {
		return float64(f)
	}
	return base.NormalizeValue(v)
}
