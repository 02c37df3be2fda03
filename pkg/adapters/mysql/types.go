package mysql

import (
	"strings"

	"github.com/ruslano69/tablemapper/pkg/schema"
)

// DeclaredType отображает MySQL DATA_TYPE на тип колонки маппера.
// DECIMAL, даты, BLOB и ENUM остаются OTHER: их значения не приводятся.
func DeclaredType(mysqlType string) schema.DeclaredType {
	mysqlType = strings.ToLower(strings.TrimSpace(mysqlType))
	if idx := strings.Index(mysqlType, "("); idx != -1 {
		mysqlType = mysqlType[:idx]
	}
	mysqlType = strings.TrimSpace(strings.TrimSuffix(mysqlType, " unsigned"))

	switch mysqlType {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return schema.TypeInteger
	case "float", "double", "double precision", "real":
		return schema.TypeReal
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext":
		return schema.TypeText
	default:
		return schema.TypeOther
	}
}
