package workbook

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
)

const sampleCSV = "Name,Serial Number,Cost,Installed,Virtual\n" +
	"web-01,SN-1001,1200.50,2024-01-15,true\n" +
	"web-02,SN-1002,$900,2024-02-01,false\n" +
	"web-01,,300,2024-03-10,yes\n" +
	"db-01,SN-1004,45,2024-04-22,no\n" +
	"db-02,SN-1004,,2024-05-30,true\n"

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"Name", "Serial Number", "Cost", "Installed", "Virtual"}, table.Headers); diff != "" {
		t.Fatalf("headers (-want +got):\n%s", diff)
	}
	if len(table.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(table.Rows))
	}
	if table.Cell(2, 1) != nil {
		t.Fatalf("empty csv cell should be nil, got %#v", table.Cell(2, 1))
	}
}

func TestProfile(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	table.EnsureColumn(ChangesLogColumn)
	profiles := Profile(table)
	if len(profiles) != 5 {
		t.Fatalf("reserved columns must not be profiled, got %d profiles", len(profiles))
	}
	cases := []struct {
		name       string
		typ        models.ColumnType
		empty      int
		duplicates int
		unique     int
	}{
		{"Name", models.ColumnTypeAlphanumeric, 0, 1, 4},
		{"Serial Number", models.ColumnTypeAlphanumeric, 1, 1, 3},
		{"Cost", models.ColumnTypeNumber, 1, 0, 4},
		{"Installed", models.ColumnTypeDate, 0, 0, 5},
		{"Virtual", models.ColumnTypeBoolean, 0, 1, 4},
	}
	for i, tc := range cases {
		p := profiles[i]
		if p.Name != tc.name || p.InferredType != tc.typ || p.EmptyRecords != tc.empty ||
			p.DuplicateRecords != tc.duplicates || p.UniqueValueCount != tc.unique || p.TotalRecords != 5 {
			t.Fatalf("profile %d = %+v, expected %+v", i, p, tc)
		}
	}
}

func TestInferType_NeedsMajority(t *testing.T) {
	mixed := []any{"1", "2", "three", "four", nil}
	if got := InferType(mixed); got != models.ColumnTypeString {
		t.Fatalf("expected string for a mixed column, got %s", got)
	}
	mostly := []any{1.0, 2.0, 3.0, 4.0, "n/a"}
	if got := InferType(mostly); got != models.ColumnTypeNumber {
		t.Fatalf("expected number at 80%%, got %s", got)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	table := &Table{
		Headers: []string{"Host", "CPU", "Active"},
		Rows: [][]any{
			{"web-01", 4.0, true},
			{"web-02", nil, false},
		},
	}
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Write(path, table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(table, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestWriteTo_MatchesWrite(t *testing.T) {
	table := &Table{
		Headers: []string{"Host", "Notes"},
		Rows:    [][]any{{"web-01", "a | b"}},
	}
	var buf bytes.Buffer
	if err := WriteTo(&buf, table); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	path := filepath.Join(t.TempDir(), "streamed.xlsx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(table, got); diff != "" {
		t.Fatalf("streamed workbook (-want +got):\n%s", diff)
	}
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("inventory.pdf")
	if !errors.Is(err, utils.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestTableEditing(t *testing.T) {
	table := &Table{
		Headers: []string{"A", "B"},
		Rows:    [][]any{{"a1", "b1"}, {"a2"}, {"a3", "b3"}},
	}
	log := table.EnsureColumn(ChangesLogColumn)
	if log != 2 || table.EnsureColumn(ChangesLogColumn) != 2 {
		t.Fatalf("EnsureColumn should append once")
	}
	if err := table.SetCell(1, log, "A:KEEP"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := table.SetCell(5, 0, "x"); !errors.Is(err, utils.ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
	table.DeleteRow(0)
	table.DropColumn("B")
	want := &Table{
		Headers: []string{"A", ChangesLogColumn},
		Rows:    [][]any{{"a2", "A:KEEP"}, {"a3"}},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Fatalf("table (-want +got):\n%s", diff)
	}
	if _, err := table.Column("B"); !errors.Is(err, utils.ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}
