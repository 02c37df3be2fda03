// Package security проверяет входные данные внешних интерфейсов.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier - имя нельзя подставлять в SQL
var ErrInvalidIdentifier = errors.New("invalid identifier")

// maxIdentifierLength - ограничение PostgreSQL (63) с запасом до MS SQL (128)
const maxIdentifierLength = 128

// имя или schema.name из латиницы, цифр и подчеркиваний
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// reserved - ключевые слова, которые не могут быть именем таблицы без кавычек
var reserved = map[string]struct{}{
	// DML
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "TRUNCATE": {}, "MERGE": {},
	// DDL
	"DROP": {}, "CREATE": {}, "ALTER": {}, "TABLE": {},
	// DCL
	"GRANT": {}, "REVOKE": {},
	// выражения
	"FROM": {}, "WHERE": {}, "AND": {}, "OR": {}, "NOT": {}, "NULL": {}, "UNION": {}, "VALUES": {}, "SET": {},
	// SQLite
	"PRAGMA": {}, "ATTACH": {}, "DETACH": {},
	// транзакции и вызовы
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {}, "EXEC": {}, "EXECUTE": {}, "CALL": {},
}

// ValidateIdentifier проверяет имя таблицы, пришедшее снаружи (CLI, конфиг),
// перед тем как маппер подставит его в SQL без экранирования.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: %d characters, max %d", ErrInvalidIdentifier, len(name), maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}

	for _, part := range strings.Split(name, ".") {
		if _, ok := reserved[strings.ToUpper(part)]; ok {
			return fmt.Errorf("%w: %q is a reserved word", ErrInvalidIdentifier, part)
		}
	}
	return nil
}
