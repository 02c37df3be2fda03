package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/mapper"
	"github.com/ruslano69/tablemapper/pkg/schema"
	"github.com/ruslano69/tablemapper/pkg/security"
	"github.com/ruslano69/tablemapper/pkg/xlsx"
)

// runner executes CLI commands against one open adapter
type runner struct {
	adapter adapters.Adapter
	out     io.Writer
	log     zerolog.Logger
}

func (r *runner) mapperFor(ctx context.Context, table string) (*mapper.TableMapper, error) {
	if table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	// имя таблицы попадает в SQL как есть
	if err := security.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	return mapper.New(ctx, r.adapter, table, mapper.WithLogger(r.log))
}

// ListTables prints all tables in the database
func (r *runner) ListTables(ctx context.Context) error {
	tables, err := r.adapter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	if len(tables) == 0 {
		fmt.Fprintln(r.out, "No tables found")
		return nil
	}

	fmt.Fprintf(r.out, "Found %d table(s):\n", len(tables))
	for i, table := range tables {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, table)
	}
	return nil
}

// ShowSchema prints columns in declaration order
func (r *runner) ShowSchema(ctx context.Context, table string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Table %s (%d columns):\n", m.Table(), m.Schema().Len())
	for _, c := range m.Schema().Columns() {
		fmt.Fprintf(r.out, "  %-24s %s\n", c.Name, c.Type)
	}
	return nil
}

// Get prints the row with the given id
func (r *runner) Get(ctx context.Context, table, id string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	rec, err := r.load(ctx, m, id)
	if err != nil {
		return err
	}
	return r.printJSON(rec)
}

// Select prints rows matching the --where filter
func (r *runner) Select(ctx context.Context, table, where string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	filter, err := parseWhere(m.Schema(), where)
	if err != nil {
		return err
	}

	rows, err := m.Select(ctx, filter)
	if err != nil {
		return err
	}
	return r.printJSON(rows)
}

// Insert builds a record from JSON input and inserts it
func (r *runner) Insert(ctx context.Context, table, data string, fields []string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	input, err := parseData(data)
	if err != nil {
		return err
	}

	rec := m.BuildModelFrom(input, fields)
	if !m.Validate(rec) {
		return fmt.Errorf("record failed validation")
	}
	if err := m.Insert(ctx, rec); err != nil {
		return err
	}
	return r.printJSON(rec)
}

// Update loads row id, applies JSON input and writes it back
func (r *runner) Update(ctx context.Context, table, id, data string, fields []string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	input, err := parseData(data)
	if err != nil {
		return err
	}

	rec, err := r.load(ctx, m, id)
	if err != nil {
		return err
	}

	key := rec[mapper.KeyColumn]
	m.UpdateModelFrom(rec, input, fields)
	rec[mapper.KeyColumn] = key

	if !m.Validate(rec) {
		return fmt.Errorf("record failed validation")
	}
	if err := m.Update(ctx, rec); err != nil {
		return err
	}
	return r.printJSON(rec)
}

// Delete removes row id
func (r *runner) Delete(ctx context.Context, table, id string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	rec, err := r.load(ctx, m, id)
	if err != nil {
		return err
	}
	if err := m.Delete(ctx, rec); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Deleted %s id=%s\n", m.Table(), id)
	return nil
}

// ExportXLSX writes all rows of table to an XLSX file
func (r *runner) ExportXLSX(ctx context.Context, table, output, sheet string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	rows, err := m.GetAll(ctx)
	if err != nil {
		return err
	}

	if output == "" {
		output = table + ".xlsx"
	}
	if err := xlsx.ExportRows(m.Schema(), rows, output, sheet); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	fmt.Fprintf(r.out, "Exported %d row(s) from %s to %s\n", len(rows), m.Table(), output)
	return nil
}

// ImportXLSX inserts every sheet row into table. Rows go through
// BuildModelFrom, so values are coerced like any other input.
func (r *runner) ImportXLSX(ctx context.Context, path, table, sheet string) error {
	m, err := r.mapperFor(ctx, table)
	if err != nil {
		return err
	}

	// пустое имя листа - первый лист книги
	inputs, err := xlsx.ReadRecords(path, sheet)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for i, input := range inputs {
		rec := m.BuildModelFrom(input, nil)
		if !m.Validate(rec) {
			return fmt.Errorf("row %d failed validation", i+2)
		}
		if err := m.Insert(ctx, rec); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	fmt.Fprintf(r.out, "Imported %d row(s) into %s\n", len(inputs), m.Table())
	return nil
}

// load fetches row id; zero or several matches are reported as not found
func (r *runner) load(ctx context.Context, m *mapper.TableMapper, id string) (mapper.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("--id is required")
	}

	col, ok := m.Schema().Lookup(mapper.KeyColumn)
	if !ok {
		return nil, fmt.Errorf("table %s has no %s column", m.Table(), mapper.KeyColumn)
	}

	rec, err := m.Get(ctx, keyValue(col, id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("row %s=%s not found in %s", mapper.KeyColumn, id, m.Table())
	}
	return rec, nil
}

func (r *runner) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

// parseWhere разбирает "col=value,col2=value" в фильтр по колонкам схемы
func parseWhere(t *schema.Table, where string) (mapper.Record, error) {
	filter := mapper.Record{}
	if strings.TrimSpace(where) == "" {
		return filter, nil
	}

	for _, part := range strings.Split(where, ",") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q: expected col=value", part)
		}
		name = strings.TrimSpace(name)

		col, ok := t.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q in table %s", name, t.Name())
		}
		filter[name] = keyValue(col, strings.TrimSpace(value))
	}
	return filter, nil
}

// keyValue parses command-line values for numeric columns; text is compared as given
func keyValue(col schema.Column, raw string) any {
	if col.Type.IsNumeric() {
		return schema.Coerce(raw, col.Type)
	}
	return raw
}

func parseData(data string) (map[string]any, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("--data is required")
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(data), &input); err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	return input, nil
}

// parseFields: "" означает все колонки
func parseFields(fields string) []string {
	if strings.TrimSpace(fields) == "" {
		return nil
	}

	var result []string
	for _, f := range strings.Split(fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			result = append(result, f)
		}
	}
	return result
}
