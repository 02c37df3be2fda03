package mapper

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/ruslano69/tablemapper/pkg/schema"
)

// KeyColumn - колонка, по которой работают Update, Delete и Get
const KeyColumn = "id"

// Statement - текст SQL и список именованных параметров (:name) в порядке
// их появления. Имена таблицы и колонок подставляются в текст как есть,
// поэтому они должны приходить только из доверенной схемы.
type Statement struct {
	SQL    string
	Params []string

	// err - запрос не может быть выполнен; возвращается из Bind
	err error
}

// Bind собирает аргументы для параметров запроса из values.
// Ключи values, которых нет среди параметров, игнорируются.
func (s Statement) Bind(values map[string]any) ([]sql.NamedArg, error) {
	if s.err != nil {
		return nil, s.err
	}
	args := make([]sql.NamedArg, 0, len(s.Params))
	for _, name := range s.Params {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w :%s", ErrMissingParam, name)
		}
		args = append(args, sql.Named(name, v))
	}
	return args, nil
}

// buildInsert: INSERT INTO <table> VALUES(:c1,:c2,...)
func buildInsert(t *schema.Table) Statement {
	names := t.Names()

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(t.Name())
	sb.WriteString(" VALUES(")
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(':')
		sb.WriteString(name)
	}
	sb.WriteByte(')')

	return Statement{SQL: sb.String(), Params: names}
}

// buildSelect: SELECT * FROM <table> [WHERE c = :c AND ...].
// Предикаты строятся только для колонок схемы, присутствующих в filter,
// в порядке схемы. Значение nil считается отсутствующим.
// Непустой filter без единого предиката дает запрос с ErrEmptyFilter:
// опечатка в ключе не должна превращаться в выборку всей таблицы.
func buildSelect(t *schema.Table, filter map[string]any) Statement {
	stmt := Statement{SQL: "SELECT * FROM " + t.Name()}
	if len(filter) == 0 {
		return stmt
	}

	var predicates []string
	for _, name := range t.Names() {
		if v, ok := filter[name]; !ok || v == nil {
			continue
		}
		predicates = append(predicates, name+" = :"+name)
		stmt.Params = append(stmt.Params, name)
	}

	if len(predicates) == 0 {
		stmt.err = fmt.Errorf("%w: no column of %s in %v", ErrEmptyFilter, t.Name(), sortedKeys(filter))
		return stmt
	}

	stmt.SQL += " WHERE " + strings.Join(predicates, " AND ")
	return stmt
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildUpdate: UPDATE <table> SET c1 = :c1, ... WHERE id = :id
func buildUpdate(t *schema.Table) Statement {
	var (
		sets   []string
		params []string
	)
	for _, name := range t.Names() {
		if name == KeyColumn {
			continue
		}
		sets = append(sets, name+" = :"+name)
		params = append(params, name)
	}
	params = append(params, KeyColumn)

	return Statement{
		SQL:    "UPDATE " + t.Name() + " SET " + strings.Join(sets, ", ") + " WHERE " + KeyColumn + " = :" + KeyColumn,
		Params: params,
	}
}

// buildDelete: DELETE FROM <table> WHERE id = :id
func buildDelete(t *schema.Table) Statement {
	return Statement{
		SQL:    "DELETE FROM " + t.Name() + " WHERE " + KeyColumn + " = :" + KeyColumn,
		Params: []string{KeyColumn},
	}
}
