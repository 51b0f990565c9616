package workbook

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mmdatafocus/cmdb_cleanser/utils"
)

// Reserved columns carrying the decision trail inside the sheet. Both are stripped on export.
const (
	ChangesLogColumn = "_CHANGES_LOG"
	RowDeleteColumn  = "_ROW_DELETE"
)

// IsReserved reports whether a header is one of the decision-trail columns.
func IsReserved(header string) bool {
	return header == ChangesLogColumn || header == RowDeleteColumn
}

// Table is a sheet held in memory. Row 1 of the file is Headers; Rows[0] is spreadsheet row 2.
// Cells are nil, string, float64 or bool.
type Table struct {
	Headers []string
	Rows    [][]any
}

func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", utils.ErrColumnNotFound, name)
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

func (t *Table) Cell(rowIndex, col int) any {
	if rowIndex < 0 || rowIndex >= len(t.Rows) || col < 0 || col >= len(t.Rows[rowIndex]) {
		return nil
	}
	return t.Rows[rowIndex][col]
}

func (t *Table) SetCell(rowIndex, col int, v any) error {
	if rowIndex < 0 || rowIndex >= len(t.Rows) {
		return fmt.Errorf("%w: row %d", utils.ErrRowOutOfRange, rowIndex+2)
	}
	if col < 0 || col >= len(t.Headers) {
		return fmt.Errorf("%w: index %d", utils.ErrColumnNotFound, col)
	}
	row := t.Rows[rowIndex]
	for len(row) <= col {
		row = append(row, nil)
	}
	row[col] = v
	t.Rows[rowIndex] = row
	return nil
}

// EnsureColumn appends the header if missing and returns its index.
func (t *Table) EnsureColumn(name string) int {
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx
	}
	t.Headers = append(t.Headers, name)
	return len(t.Headers) - 1
}

// DropColumn removes the named column from the header and every row.
func (t *Table) DropColumn(name string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return
	}
	t.Headers = append(t.Headers[:idx:idx], t.Headers[idx+1:]...)
	for i, row := range t.Rows {
		if idx < len(row) {
			t.Rows[i] = append(row[:idx:idx], row[idx+1:]...)
		}
	}
}

func (t *Table) DeleteRow(rowIndex int) {
	if rowIndex < 0 || rowIndex >= len(t.Rows) {
		return
	}
	t.Rows = append(t.Rows[:rowIndex], t.Rows[rowIndex+1:]...)
}

// DataHeaders lists the headers that are not reserved.
func (t *Table) DataHeaders() []string {
	var out []string
	for _, h := range t.Headers {
		if !IsReserved(h) {
			out = append(out, h)
		}
	}
	return out
}

func (t *Table) Clone() *Table {
	cp := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp.Rows[i] = append([]any(nil), row...)
	}
	return cp
}

// IsEmpty is true for nil and the empty string only; whitespace is the whitespace action's business.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Text renders a cell the way it is compared and displayed.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}
