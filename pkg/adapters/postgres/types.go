package postgres

import (
	"strings"

	"github.com/ruslano69/tablemapper/pkg/adapters/base"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

// DeclaredType отображает тип PostgreSQL (information_schema.columns.data_type)
// на тип колонки маппера
func DeclaredType(pgType string) schema.DeclaredType {
	pgType = strings.ToLower(strings.TrimSpace(pgType))

	switch extractBaseType(pgType) {
	case "smallint", "int2", "integer", "int", "int4", "bigint", "int8",
		"serial", "serial4", "bigserial", "serial8":
		return schema.TypeInteger
	case "real", "float4", "double precision", "float8":
		return schema.TypeReal
	case "text", "character varying", "varchar", "character", "char":
		return schema.TypeText
	default:
		// numeric, boolean, даты, uuid, json и т.п.
		return schema.TypeOther
	}
}

// normalizeValue приводит значения pgx к int64 / float64 / string
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return base.NormalizeValue(v)
	}
}

// extractBaseType убирает размер: "character varying(100)" → "character varying"
func extractBaseType(pgType string) string {
	if idx := strings.Index(pgType, "("); idx != -1 {
		pgType = pgType[:idx]
	}
	return strings.TrimSpace(pgType)
}
