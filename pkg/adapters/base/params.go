package base

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder формирует плейсхолдер для n-го (с 1) параметра name
type Placeholder func(name string, n int) string

var (
	// QuestionMark - позиционные параметры MySQL: ?
	QuestionMark Placeholder = func(string, int) string { return "?" }

	// AtName - именованные параметры MS SQL и pgx.NamedArgs: @name
	AtName Placeholder = func(name string, _ int) string { return "@" + name }

	// DollarN - позиционные параметры PostgreSQL: $1, $2, ...
	DollarN Placeholder = func(_ string, n int) string { return "$" + strconv.Itoa(n) }
)

// RewriteNamed заменяет параметры :name на плейсхолдеры драйвера.
// Возвращает новый текст запроса и имена параметров в порядке вхождения
// (имя повторяется, если параметр встречается несколько раз).
// Текст в одинарных кавычках и приведение типов PostgreSQL (::type) не трогаются.
func RewriteNamed(query string, ph Placeholder) (string, []string) {
	var (
		sb    strings.Builder
		names []string
	)
	sb.Grow(len(query))

	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]

		if c == '\'' {
			inQuote = !inQuote
			sb.WriteByte(c)
			continue
		}
		if inQuote || c != ':' {
			sb.WriteByte(c)
			continue
		}

		// ::type
		if i+1 < len(query) && query[i+1] == ':' {
			sb.WriteString("::")
			i++
			continue
		}

		j := i + 1
		for j < len(query) && isIdentByte(query[j], j == i+1) {
			j++
		}
		if j == i+1 {
			sb.WriteByte(c)
			continue
		}

		name := query[i+1 : j]
		names = append(names, name)
		sb.WriteString(ph(name, len(names)))
		i = j - 1
	}

	return sb.String(), names
}

// ArgsInOrder раскладывает именованные аргументы по списку имен из RewriteNamed
func ArgsInOrder(names []string, args []sql.NamedArg) ([]any, error) {
	byName := make(map[string]any, len(args))
	for _, a := range args {
		byName[a.Name] = a.Value
	}

	out := make([]any, len(names))
	for i, name := range names {
		v, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no value for parameter :%s", name)
		}
		out[i] = v
	}
	return out, nil
}

// NamedArgsAny превращает []sql.NamedArg в []any для database/sql
func NamedArgsAny(args []sql.NamedArg) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}
