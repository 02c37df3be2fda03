package schema

import (
	"errors"
	"fmt"
	"strings"
)

// DeclaredType - объявленный тип колонки таблицы
type DeclaredType string

// Распознаваемые теги типов. Все остальное считается OTHER
const (
	TypeText    DeclaredType = "TEXT"
	TypeInteger DeclaredType = "INTEGER"
	TypeReal    DeclaredType = "REAL"
	TypeOther   DeclaredType = "OTHER"
)

// ErrNoColumns - таблица не содержит ни одной колонки (или не существует)
var ErrNoColumns = errors.New("table has no columns")

// ParseDeclaredType преобразует тег типа из интроспекции в DeclaredType.
// Сравнение нечувствительно к регистру, модификаторы не разбираются:
// "VARCHAR(100)" или "INT" дают TypeOther.
func ParseDeclaredType(tag string) DeclaredType {
	switch DeclaredType(strings.ToUpper(strings.TrimSpace(tag))) {
	case TypeText:
		return TypeText
	case TypeInteger:
		return TypeInteger
	case TypeReal:
		return TypeReal
	default:
		return TypeOther
	}
}

// IsNumeric проверяет является ли тип числовым
func (t DeclaredType) IsNumeric() bool {
	return t == TypeInteger || t == TypeReal
}

// ZeroValue возвращает значение по умолчанию для типа:
// "" для TEXT/OTHER, int64(0) для INTEGER, float64(0) для REAL
func ZeroValue(t DeclaredType) any {
	switch t {
	case TypeInteger:
		return int64(0)
	case TypeReal:
		return float64(0)
	default:
		return ""
	}
}

// Column описывает одну колонку таблицы
type Column struct {
	Name string
	Type DeclaredType
}

// Table - упорядоченный набор колонок одной таблицы.
// Порядок совпадает с порядком, который вернула интроспекция.
// После создания не изменяется.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
}

// NewTable создает схему таблицы. Пустой список колонок и повторяющиеся
// имена считаются ошибкой.
func NewTable(name string, columns []Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, ErrNoColumns)
	}

	t := &Table{
		name:    name,
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("table %q: column %d has empty name", name, i)
		}
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("table %q: duplicate column %q", name, col.Name)
		}
		t.columns[i] = col
		t.index[col.Name] = i
	}

	return t, nil
}

// Name возвращает имя таблицы
func (t *Table) Name() string {
	return t.name
}

// Len возвращает количество колонок
func (t *Table) Len() int {
	return len(t.columns)
}

// Columns возвращает копию списка колонок
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Names возвращает имена колонок в порядке схемы
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Lookup ищет колонку по имени
func (t *Table) Lookup(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Has проверяет наличие колонки
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// String - краткое описание схемы для логов: users(id INTEGER, name TEXT)
func (t *Table) String() string {
	parts := make([]string, len(t.columns))
	for i, col := range t.columns {
		parts[i] = col.Name + " " + string(col.Type)
	}
	return t.name + "(" + strings.Join(parts, ", ") + ")"
}
