package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/remediation"
	"github.com/mmdatafocus/cmdb_cleanser/session"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
)

const sitesCSV = "Name,Location\n" +
	"web-01,NYC\n" +
	"web-02,Pariss\n" +
	"web-01,\n"

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"REDIS_ADDRESS", "DB_HOST", "DB_NAME", "AI_API_KEY", "REFERENCE_BASE_URL", "GCS_BUCKET", "PUBSUB_EXPORT_TOPIC"} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.Bytes(), err
}

func mustRun[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("cleanse %v: %v", args, err)
	}
	var v T
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	return v
}

func TestProfile(t *testing.T) {
	isolateEnv(t)
	file := writeFile(t, "sites.csv", sitesCSV)

	info := mustRun[session.WorkbookInfo](t, "profile", file)
	if info.Rows != 3 || len(info.Columns) != 2 {
		t.Fatalf("unexpected workbook %+v", info)
	}
	name := info.Columns[0]
	if name.Name != "Name" || name.DuplicateRecords != 1 || name.UniqueValueCount != 2 {
		t.Fatalf("unexpected Name profile %+v", name)
	}
	if loc := info.Columns[1]; loc.EmptyRecords != 1 {
		t.Fatalf("expected one empty Location, got %+v", loc)
	}
}

func TestActions(t *testing.T) {
	isolateEnv(t)
	file := writeFile(t, "sites.csv", sitesCSV)

	actions := mustRun[[]models.Action](t, "actions", file, "Name", "--unique")
	if len(actions) == 0 || actions[0].Type != models.ActionTypeDuplicates {
		t.Fatalf("expected duplicates first for a unique column, got %+v", actions)
	}
	if actions[0].IssueCount == nil || *actions[0].IssueCount != 1 {
		t.Fatalf("expected one duplicate, got %+v", actions[0])
	}

	if _, err := run(t, "actions", file, "Owner"); err == nil {
		t.Fatalf("expected an error for an unknown column")
	}
	if _, err := run(t, "actions", file, "Name", "--type", "colour"); err == nil {
		t.Fatalf("expected an error for an unknown type")
	}
}

func TestScanWithReferenceFile(t *testing.T) {
	isolateEnv(t)
	file := writeFile(t, "sites.csv", sitesCSV)
	refs := writeFile(t, "cities.txt", "# known sites\nNew York\nParis\n")

	res := mustRun[remediation.ScanResult](t, "scan", file, "Location", "reference-validation", "--reference-file", refs)
	var found bool
	for _, issue := range res.Issues {
		if issue.RowNumber == 3 {
			found = true
			if issue.SuggestedFix != "Paris" {
				t.Fatalf("expected Paris for row 3, got %+v", issue)
			}
		}
		if issue.RowNumber == 4 {
			t.Fatalf("empty cells are skipped without --list-all, got %+v", issue)
		}
	}
	if !found {
		t.Fatalf("expected an issue for row 3, got %+v", res.Issues)
	}

	all := mustRun[remediation.ScanResult](t, "scan", file, "Location", "reference-validation", "--reference-file", refs, "--list-all")
	if len(all.Issues) != 3 {
		t.Fatalf("expected every row with --list-all, got %+v", all.Issues)
	}

	if _, err := run(t, "scan", file, "Location", "sparkle"); err == nil {
		t.Fatalf("expected an error for an unsupported action")
	}
}

func TestExportReplaysChangeLog(t *testing.T) {
	isolateEnv(t)
	in := filepath.Join(t.TempDir(), "sites.xlsx")
	err := workbook.Write(in, &workbook.Table{
		Headers: []string{"Name", "Location", workbook.ChangesLogColumn, workbook.RowDeleteColumn},
		Rows: [][]any{
			{"web-01", "NYC", "Location:NYC→New York", nil},
			{"web-02", "Paris", "Name:KEEP", nil},
			{"web-01", nil, "Name:DELETE_ROW", "Deleted during cleansing"},
		},
	})
	if err != nil {
		t.Fatalf("write input: %v", err)
	}
	out := filepath.Join(t.TempDir(), "cleaned.xlsx")

	res := mustRun[session.ExportResult](t, "export", in, out)
	want := session.ExportResult{FileName: out}
	want.Stats.EditsApplied = 1
	want.Stats.RowsDeleted = 1
	want.Stats.RowsExported = 2
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("export result (-want +got):\n%s", diff)
	}

	cleaned, err := workbook.Read(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	wantTable := &workbook.Table{
		Headers: []string{"Name", "Location"},
		Rows: [][]any{
			{"web-01", "New York"},
			{"web-02", "Paris"},
		},
	}
	if diff := cmp.Diff(wantTable, cleaned); diff != "" {
		t.Fatalf("export (-want +got):\n%s", diff)
	}
}

func TestArgsAreChecked(t *testing.T) {
	isolateEnv(t)
	if _, err := run(t, "scan", "only-a-file.csv"); err == nil {
		t.Fatalf("expected an argument count error")
	}
	if _, err := run(t, "profile", filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
