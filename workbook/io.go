package workbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Sheet1"

var reFormattedDate = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)

// Supported reports whether the file name has an extension Read understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// Read loads the first sheet of an xlsx workbook, or a csv file. Row 1 is the header row.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	}
	return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedFile, filepath.Ext(path))
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	if len(raw) == 0 {
		return &Table{}, nil
	}

	t := &Table{}
	for _, h := range raw[0] {
		t.Headers = append(t.Headers, strings.TrimSpace(h))
	}
	for r := 1; r < len(raw); r++ {
		row := make([]any, len(t.Headers))
		for c := 0; c < len(t.Headers) && c < len(raw[r]); c++ {
			display := ""
			if r < len(formatted) && c < len(formatted[r]) {
				display = formatted[r][c]
			}
			axis, _ := excelize.CoordinatesToCellName(c+1, r+1)
			cellType, _ := f.GetCellType(sheet, axis)
			row[c] = typedCell(cellType, raw[r][c], display)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// typedCell keeps numbers and booleans typed. Number cells formatted as dates keep their display text
// so date columns are inferred as dates.
func typedCell(cellType excelize.CellType, raw, display string) any {
	if raw == "" {
		return nil
	}
	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if reFormattedDate.MatchString(display) {
			return display
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case excelize.CellTypeDate:
		if display != "" {
			return display
		}
	}
	return raw
}

// ReadCSV reads comma separated values; every cell stays a string except empties.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv: %w", err)
	}
	t := &Table{}
	if len(records) == 0 {
		return t, nil
	}
	for _, h := range records[0] {
		t.Headers = append(t.Headers, strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	for _, rec := range records[1:] {
		row := make([]any, len(t.Headers))
		for c := 0; c < len(t.Headers) && c < len(rec); c++ {
			if rec[c] != "" {
				row[c] = rec[c]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Write saves the table as a single-sheet xlsx file, replacing any existing file.
func Write(path string, t *Table) error {
	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("unable to save workbook: %w", err)
	}
	return nil
}

// WriteTo streams the table as xlsx, for downloads.
func WriteTo(w io.Writer, t *Table) error {
	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func build(t *Table) (*excelize.File, error) {
	f := excelize.NewFile()
	for c, h := range t.Headers {
		axis, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, axis, h); err != nil {
			return nil, err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, axis, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
