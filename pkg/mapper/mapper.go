// Package mapper реализует маппер одной таблицы, управляемый схемой:
// схема читается один раз при создании, SQL для insert/select/update/delete
// строится из списка колонок, значения всегда передаются параметрами.
package mapper

import (
	"context"
	"database/sql"
	"maps"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/schema"
)

// Conn - соединение с БД, которым пользуется маппер.
// Маппер не владеет соединением и не закрывает его.
type Conn interface {
	// Columns возвращает колонки таблицы в порядке объявления
	Columns(ctx context.Context, table string) ([]schema.Column, error)

	// Exec выполняет запрос с именованными параметрами (:name)
	Exec(ctx context.Context, query string, args []sql.NamedArg) error

	// Query выполняет запрос и возвращает все строки как name → value
	Query(ctx context.Context, query string, args []sql.NamedArg) ([]map[string]any, error)
}

// Record - значения строки по именам колонок
type Record map[string]any

// TableMapper предоставляет CRUD операции над одной таблицей
type TableMapper struct {
	conn      Conn
	schema    *schema.Table
	validator Validator
	observers []Observer
	logger    zerolog.Logger
}

// New создает маппер для таблицы и загружает ее схему.
// Если таблица не существует или интроспекция не удалась, возвращается *SchemaError.
func New(ctx context.Context, conn Conn, table string, opts ...Option) (*TableMapper, error) {
	m := &TableMapper{
		conn:      conn,
		validator: AlwaysValid,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	columns, err := conn.Columns(ctx, table)
	if err != nil {
		return nil, &SchemaError{Table: table, Err: err}
	}

	m.schema, err = schema.NewTable(table, columns)
	if err != nil {
		return nil, &SchemaError{Table: table, Err: err}
	}

	m.logger = m.logger.With().Str("table", table).Logger()
	m.logger.Debug().Stringer("schema", m.schema).Msg("schema loaded")

	return m, nil
}

// Table возвращает имя таблицы
func (m *TableMapper) Table() string {
	return m.schema.Name()
}

// Schema возвращает схему таблицы
func (m *TableMapper) Schema() *schema.Table {
	return m.schema
}

// Insert вставляет запись. Значения берутся для всех колонок схемы,
// включая id: генерация ключа остается на стороне БД.
func (m *TableMapper) Insert(ctx context.Context, rec Record) error {
	_, err := m.execute(ctx, OpInsert, buildInsert(m.schema), rec, false)
	return err
}

// Select возвращает строки, у которых колонки из filter равны заданным значениям.
// Ключи filter, которых нет в схеме, и значения nil игнорируются. Пустой
// filter - вся таблица; непустой filter, в котором не осталось ни одной
// колонки, - PersistenceError с ErrEmptyFilter, запрос к БД не уходит.
// Значения возвращаются как их отдает драйвер, без приведения типов.
func (m *TableMapper) Select(ctx context.Context, filter Record) ([]Record, error) {
	return m.execute(ctx, OpSelect, buildSelect(m.schema, filter), filter, true)
}

// Update обновляет все колонки кроме id у строки с rec["id"]
func (m *TableMapper) Update(ctx context.Context, rec Record) error {
	_, err := m.execute(ctx, OpUpdate, buildUpdate(m.schema), rec, false)
	return err
}

// Delete удаляет строку с rec["id"]. Остальные поля rec не используются.
func (m *TableMapper) Delete(ctx context.Context, rec Record) error {
	key := Record{}
	if id, ok := rec[KeyColumn]; ok {
		key[KeyColumn] = id
	}
	_, err := m.execute(ctx, OpDelete, buildDelete(m.schema), key, false)
	return err
}

// GetAll возвращает все строки таблицы
func (m *TableMapper) GetAll(ctx context.Context) ([]Record, error) {
	return m.Select(ctx, Record{})
}

// Get возвращает строку с заданным id, если найдена ровно одна.
// Ноль и несколько совпадений одинаково дают nil.
func (m *TableMapper) Get(ctx context.Context, id any) (Record, error) {
	rows, err := m.Select(ctx, Record{KeyColumn: id})
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, nil
	}
	return rows[0], nil
}

// CreateModel возвращает запись со значениями по умолчанию для всех колонок
func (m *TableMapper) CreateModel() Record {
	rec := make(Record, m.schema.Len())
	for _, col := range m.schema.Columns() {
		rec[col.Name] = schema.ZeroValue(col.Type)
	}
	return rec
}

// BuildModelFrom создает запись из input с приведением типов.
// fields != nil ограничивает набор заполняемых колонок.
// Колонки, отсутствующие в input, получают значения по умолчанию.
func (m *TableMapper) BuildModelFrom(input map[string]any, fields []string) Record {
	rec := m.CreateModel()
	m.fill(rec, input, fields)
	return rec
}

// UpdateModelFrom как BuildModelFrom, но изменяет переданную запись.
// Колонки, отсутствующие в input, не меняются.
func (m *TableMapper) UpdateModelFrom(rec Record, input map[string]any, fields []string) {
	m.fill(rec, input, fields)
}

// Validate проверяет запись настроенной стратегией (по умолчанию всегда true)
func (m *TableMapper) Validate(rec Record) bool {
	return m.validator.Validate(rec)
}

func (m *TableMapper) fill(rec Record, input map[string]any, fields []string) {
	var allowed map[string]struct{}
	if fields != nil {
		allowed = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			allowed[f] = struct{}{}
		}
	}

	for _, col := range m.schema.Columns() {
		if allowed != nil {
			if _, ok := allowed[col.Name]; !ok {
				continue
			}
		}
		// nil считается отсутствующим значением
		value, ok := input[col.Name]
		if !ok || value == nil {
			continue
		}
		rec[col.Name] = schema.Coerce(value, col.Type)
	}
}

// execute связывает параметры, выполняет запрос и уведомляет наблюдателей
func (m *TableMapper) execute(ctx context.Context, op Op, stmt Statement, values Record, query bool) ([]Record, error) {
	started := time.Now()

	m.logger.Debug().
		Str("op", string(op)).
		Str("sql", stmt.SQL).
		Strs("params", stmt.Params).
		Msg("executing statement")

	var (
		rows []Record
		err  error
	)

	args, bindErr := stmt.Bind(values)
	if bindErr != nil {
		err = bindErr
	} else if query {
		var raw []map[string]any
		raw, err = m.conn.Query(ctx, stmt.SQL, args)
		if err == nil {
			rows = make([]Record, len(raw))
			for i, r := range raw {
				rows[i] = Record(r)
			}
		}
	} else {
		err = m.conn.Exec(ctx, stmt.SQL, args)
	}

	if err != nil {
		err = &PersistenceError{Table: m.schema.Name(), Op: op, Query: stmt.SQL, Err: err}
		m.logger.Warn().Err(err).Str("op", string(op)).Msg("statement failed")
	}

	m.notify(ctx, Event{
		Table:    m.schema.Name(),
		Op:       op,
		Record:   maps.Clone(values),
		RowCount: len(rows),
		Err:      err,
		Started:  started,
		Duration: time.Since(started),
	})

	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (m *TableMapper) notify(ctx context.Context, ev Event) {
	for _, o := range m.observers {
		o.Observe(ctx, ev)
	}
}
