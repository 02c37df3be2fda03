package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Coerce приводит входное значение к типу колонки:
//   - TEXT/OTHER → строка с экранированными HTML-сущностями
//   - INTEGER    → int64 (разбор числового префикса, "42abc" → 42)
//   - REAL       → float64 (разбор числового префикса, "3.5kg" → 3.5)
func Coerce(value any, t DeclaredType) any {
	switch t {
	case TypeInteger:
		return ToInteger(value)
	case TypeReal:
		return ToReal(value)
	default:
		return EscapeHTML(ToString(value))
	}
}

// ToInteger приводит значение к int64.
// Для строк берется ведущий числовой префикс; дробная часть отбрасывается,
// при переполнении значение насыщается до границ int64.
func ToInteger(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return saturateUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return saturateUint(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseIntPrefix(v)
	case []byte:
		return parseIntPrefix(string(v))
	case json.Number:
		return parseIntPrefix(v.String())
	default:
		return parseIntPrefix(fmt.Sprint(v))
	}
}

// ToReal приводит значение к float64 по ведущему числовому префиксу
func ToReal(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseFloatPrefix(v)
	case []byte:
		return parseFloatPrefix(string(v))
	case json.Number:
		return parseFloatPrefix(v.String())
	default:
		return parseFloatPrefix(fmt.Sprint(v))
	}
}

// ToString возвращает строковое представление значения.
// true → "1", false и nil → "".
func ToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return ""
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// EscapeHTML экранирует спецсимволы и символы, для которых существует
// именованная HTML-сущность. Кавычки экранируются обе: " → &quot;, ' → &#039;.
// Некорректные UTF-8 последовательности заменяются на U+FFFD.
func EscapeHTML(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#039;")
		default:
			if name, ok := entityName(r); ok {
				b.WriteByte('&')
				b.WriteString(name)
				b.WriteByte(';')
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numericPrefix выделяет ведущее число: пробелы, знак, цифры,
// необязательная дробная часть и экспонента. Возвращает пустую строку,
// если число не найдено.
func numericPrefix(s string) (prefix string, integral bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}

	integral = true
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
			integral = false
		}
	}

	if digits == 0 {
		return "", false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
			integral = false
		}
	}

	return s[:i], integral
}

func parseIntPrefix(s string) int64 {
	prefix, integral := numericPrefix(s)
	if prefix == "" {
		return 0
	}

	if integral {
		n, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil {
			// ErrRange: насыщение по знаку
			if strings.HasPrefix(prefix, "-") {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		return n
	}

	f, _ := strconv.ParseFloat(prefix, 64)
	return floatToInt(f)
}

func parseFloatPrefix(s string) float64 {
	prefix, _ := numericPrefix(s)
	if prefix == "" {
		return 0
	}
	// При ErrRange ParseFloat возвращает ±Inf или 0, это и нужно
	f, _ := strconv.ParseFloat(prefix, 64)
	return f
}

func floatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(math.Trunc(f))
	}
}

func saturateUint(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
