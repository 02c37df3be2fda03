package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tablemapper/pkg/mapper"
	"github.com/ruslano69/tablemapper/pkg/schema"
)

const defaultSheet = "Sheet1"

// ExportRows - write table rows to an XLSX file
//
// Headers show column names with declared types (e.g., "score (REAL)").
// The id column is marked with *. Columns follow schema order; row keys
// outside the schema are not exported.
//
// Example:
//
//	rows, _ := users.GetAll(ctx)
//	err := xlsx.ExportRows(users.Schema(), rows, "users.xlsx", "")
func ExportRows(table *schema.Table, rows []mapper.Record, filePath string, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = table.Name()
	}

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	columns := table.Columns()
	for col, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, formatHeader(c)); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		f.SetCellStyle(sheetName, cell, cell, styles.header)
	}

	for rowIdx, row := range rows {
		for col, c := range columns {
			value, ok := row[c.Name]
			if !ok || value == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
			f.SetCellStyle(sheetName, cell, cell, styles.forType(c.Type))
		}
	}

	if len(columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(columns))
		f.SetColWidth(sheetName, "A", last, 15)
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// ReadRecords - read data rows of an XLSX file as column → value maps
//
// The first row is the header, in ExportRows format ("name (TYPE) *") or plain
// column names. Values are returned as strings; empty cells are omitted so that
// mapper.BuildModelFrom keeps the column default.
//
// Example:
//
//	inputs, err := xlsx.ReadRecords("users.xlsx", "users")
//	for _, in := range inputs {
//	    users.Insert(ctx, users.BuildModelFrom(in, nil))
//	}
func ReadRecords(filePath string, sheetName string) ([]map[string]any, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	names := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		names[i] = parseHeader(header)
	}

	records := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(names))
		for col, value := range row {
			if col >= len(names) || names[col] == "" || value == "" {
				continue
			}
			rec[names[col]] = value
		}
		records = append(records, rec)
	}

	return records, nil
}

// formatHeader - "name (TYPE)", "id (INTEGER) *"
func formatHeader(c schema.Column) string {
	header := fmt.Sprintf("%s (%s)", c.Name, c.Type)
	if c.Name == mapper.KeyColumn {
		header += " *"
	}
	return header
}

// parseHeader - column name from "name (TYPE)", "name (TYPE) *" or "name"
func parseHeader(header string) string {
	header = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(header), " *"))
	if idx := strings.LastIndex(header, " ("); idx > 0 && strings.HasSuffix(header, ")") {
		header = header[:idx]
	}
	return strings.TrimSpace(header)
}

type styles struct {
	header, integer, real, text int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		s   styles
		err error
	)

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	// встроенные форматы Excel: 1 = "0", 2 = "0.00", 49 = "@"
	if s.integer, err = f.NewStyle(&excelize.Style{NumFmt: 1}); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	if s.real, err = f.NewStyle(&excelize.Style{NumFmt: 2}); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	if s.text, err = f.NewStyle(&excelize.Style{NumFmt: 49}); err != nil {
		return s, fmt.Errorf("failed to create style: %w", err)
	}
	return s, nil
}

func (s styles) forType(t schema.DeclaredType) int {
	switch t {
	case schema.TypeInteger:
		return s.integer
	case schema.TypeReal:
		return s.real
	case schema.TypeText:
		return s.text
	default:
		return 0
	}
}
