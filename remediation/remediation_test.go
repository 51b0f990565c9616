package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/cmdb_cleanser/aisuggest"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/reference"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/validation"
)

type stubSuggester struct {
	completion aisuggest.Completion
	err        error
	got        aisuggest.Request
}

func (s *stubSuggester) Suggest(_ context.Context, req aisuggest.Request) (aisuggest.Completion, error) {
	s.got = req
	return s.completion, s.err
}

type failingSource struct{}

func (failingSource) Names(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func newTestScanner(ref reference.Source, ai aisuggest.Suggester) *Scanner {
	return NewScanner(validation.New(subtypes.Default()), ref, ai)
}

func scan(t *testing.T, s *Scanner, req ScanRequest) *ScanResult {
	t.Helper()
	res, err := s.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan(%s): %v", req.Action, err)
	}
	return res
}

func values(vs ...any) []any {
	return vs
}

func TestIsSimilar(t *testing.T) {
	cases := []struct {
		a, b      string
		threshold int
		expected  bool
	}{
		{"paris", "parise", 2, true},
		{"paris", "london", 2, false},
		{"dell", "del", 3, true},
		{"a", "abcdef", 3, false},
		{"", "", 0, true},
	}
	for _, tc := range cases {
		if got := IsSimilar(tc.a, tc.b, tc.threshold); got != tc.expected {
			t.Fatalf("IsSimilar(%q, %q, %d) expected %v", tc.a, tc.b, tc.threshold, tc.expected)
		}
	}
}

func TestScanDuplicates(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{
		Action: models.ActionTypeDuplicates,
		Column: "Code",
		Values: values("X", "Y", "X", "Z", "X"),
	})
	if len(res.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", res.Issues)
	}
	for i, row := range []int{4, 6} {
		issue := res.Issues[i]
		if issue.RowNumber != row || !strings.Contains(issue.SuggestedFix, "row 2") {
			t.Fatalf("issue %d = %+v, expected row %d referencing row 2", i, issue, row)
		}
		if issue.Status != models.IssueStatusPending {
			t.Fatalf("new issues must be pending, got %s", issue.Status)
		}
	}
}

func TestScanDuplicates_IgnoresEmptyAndPlaceholders(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{
		Action:            models.ActionTypeDuplicates,
		Values:            values(nil, "", nil, "null", "null", "undefined", "undefined", 1.0, "1"),
		IsUniqueQualifier: true,
	})
	if len(res.Issues) != 1 || res.Issues[0].RowNumber != 10 || res.Issues[0].Severity != models.SeverityCritical {
		t.Fatalf("unexpected issues %+v", res.Issues)
	}
}

func TestScanEmpty(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{Action: models.ActionTypeEmpty, Values: values("a", nil, "", " ")})
	if len(res.Issues) != 2 || res.Issues[0].RowNumber != 3 || res.Issues[1].RowNumber != 4 {
		t.Fatalf("unexpected issues %+v", res.Issues)
	}
	if res.Issues[0].SuggestedFix != "N/A or Unknown" {
		t.Fatalf("unexpected fix %q", res.Issues[0].SuggestedFix)
	}
}

func TestScanFormatValidation(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{
		Action:     models.ActionTypeFormatValidation,
		ColumnType: models.ColumnTypeString,
		Subtype:    "mac-address",
		Values:     values("00:1A:2B:3C:4D:5E", "001A2B3C4D5E", nil, "xyz"),
	})
	want := []models.Issue{
		{RowNumber: 3, CurrentValue: "001A2B3C4D5E", SuggestedFix: "00:1A:2B:3C:4D:5E", Severity: models.SeverityCritical, Status: models.IssueStatusPending},
		{RowNumber: 5, CurrentValue: "xyz", SuggestedFix: models.ManualCheckRequired, Severity: models.SeverityCritical, Status: models.IssueStatusPending},
	}
	if diff := cmp.Diff(want, res.Issues, ignoreReason); diff != "" {
		t.Fatalf("issues (-want +got):\n%s", diff)
	}
}

func TestScanFormatValidation_UnrepairableValuesNeedManualCheck(t *testing.T) {
	s := newTestScanner(nil, nil)
	cases := []struct {
		subtype string
		value   string
	}{
		{"serial-number", "AB1"},
		{"serial-number", "A1 B@2"},
		{"phone-number", "555-123-4567"},
		{"ip-address-v4", "10.0.0.256"},
	}
	for _, tc := range cases {
		res := scan(t, s, ScanRequest{
			Action:     models.ActionTypeFormatValidation,
			ColumnType: models.ColumnTypeString,
			Subtype:    tc.subtype,
			Values:     values(tc.value),
		})
		if len(res.Issues) != 1 || res.Issues[0].SuggestedFix != models.ManualCheckRequired {
			t.Fatalf("%s %q: expected a manual check, got %+v", tc.subtype, tc.value, res.Issues)
		}
	}
}

var ignoreReason = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".Reason"
}, cmp.Ignore())

func TestScanFormatValidation_NormalizationIsWarning(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{
		Action:     models.ActionTypeFormatValidation,
		ColumnType: models.ColumnTypeBoolean,
		Subtype:    "boolean-true-false",
		Values:     values("true", "Y", true),
	})
	if len(res.Issues) != 1 || res.Issues[0].SuggestedFix != "true" || res.Issues[0].Severity != models.SeverityWarning {
		t.Fatalf("unexpected issues %+v", res.Issues)
	}
}

func TestScanCosmeticActions(t *testing.T) {
	s := newTestScanner(nil, nil)
	cases := []struct {
		action models.ActionType
		input  []any
		want   map[int]string
	}{
		{models.ActionTypeWhitespace, values("  web 01", "web  02", "web-03"), map[int]string{2: "web 01", 3: "web 02"}},
		{models.ActionTypeCapitalization, values("new york", "SRV-001", "IBM server", "Paris"), map[int]string{2: "New York", 4: "IBM Server"}},
		{models.ActionTypeSpecialChars, values("rack#4", "ok_name-1.2", "@@"), map[int]string{2: "rack4", 4: models.ManualCheckRequired}},
		{models.ActionTypeCityNormalization, values("new york", "Parise", "Gotham", "London"), map[int]string{2: "New York", 3: "Paris"}},
		{models.ActionTypeCurrency, values("$1,200", "300", "€5"), map[int]string{2: "1,200", 4: "5"}},
		{models.ActionTypeCommas, values("1,200", "300"), map[int]string{2: "1200"}},
	}
	for _, tc := range cases {
		res := scan(t, s, ScanRequest{Action: tc.action, ColumnType: models.ColumnTypeString, Values: tc.input})
		got := make(map[int]string)
		for _, issue := range res.Issues {
			got[issue.RowNumber] = issue.SuggestedFix
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.action, diff)
		}
	}
}

func TestScanSpecialChars_ReasonListsDistinctCharacters(t *testing.T) {
	s := newTestScanner(nil, nil)
	res := scan(t, s, ScanRequest{Action: models.ActionTypeSpecialChars, Values: values("a#b#c!")})
	if len(res.Issues) != 1 || !strings.HasSuffix(res.Issues[0].Reason, "# !") {
		t.Fatalf("unexpected issues %+v", res.Issues)
	}
}

func TestScanReference(t *testing.T) {
	ref := reference.NewStaticSource([]string{"Dell", "Hewlett Packard Enterprise", "Lenovo", "Cisco"})
	s := newTestScanner(ref, nil)
	req := ScanRequest{
		Action:         models.ActionTypeReferenceValidation,
		ReferenceTable: "core_company",
		Values:         values("dell", "Lenvo", nil, "Acme Widgets"),
	}
	res := scan(t, s, req)
	if res.Unavailable != "" {
		t.Fatalf("unexpected unavailable %q", res.Unavailable)
	}
	if len(res.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", res.Issues)
	}
	if res.Issues[0].RowNumber != 3 || res.Issues[0].SuggestedFix != "Lenovo" {
		t.Fatalf("unexpected fuzzy issue %+v", res.Issues[0])
	}
	if res.Issues[1].RowNumber != 5 || res.Issues[1].SuggestedFix != models.ManualCheckRequired {
		t.Fatalf("unexpected unmatched issue %+v", res.Issues[1])
	}

	req.ListAll = true
	res = scan(t, s, req)
	if len(res.Issues) != 4 {
		t.Fatalf("list-all should report every row, got %+v", res.Issues)
	}
	if res.Issues[0].Reason != "✓ Valid" || res.Issues[0].SuggestedFix != "Dell" {
		t.Fatalf("unexpected valid row %+v", res.Issues[0])
	}
	if res.Issues[2].CurrentValue != "(empty)" {
		t.Fatalf("unexpected empty row %+v", res.Issues[2])
	}
}

func TestScanReference_Degrades(t *testing.T) {
	res := scan(t, newTestScanner(failingSource{}, nil), ScanRequest{
		Action:         models.ActionTypeReferenceValidation,
		ReferenceTable: "core_company",
		Values:         values("Dell"),
	})
	if len(res.Issues) != 0 || !strings.Contains(res.Unavailable, "connection refused") {
		t.Fatalf("expected an unavailable result, got %+v", res)
	}
	res = scan(t, newTestScanner(nil, nil), ScanRequest{Action: models.ActionTypeReferenceValidation, Values: values("Dell")})
	if res.Unavailable == "" {
		t.Fatalf("a missing reference source must be reported")
	}
}

func TestScanAI(t *testing.T) {
	ai := &stubSuggester{completion: aisuggest.Completion{
		Text:       "Here you go:\n```json\n{\"issues\":[{\"rowNumber\":3,\"currentValue\":\"Del\",\"suggestedFix\":\"Dell\",\"reason\":\"Typo\"},{\"rowNumber\":99,\"suggestedFix\":\"x\"}]}\n```",
		TokensUsed: 321,
	}}
	vals := make([]any, 70)
	for i := range vals {
		vals[i] = fmt.Sprintf("v%d", i)
	}
	vals[1] = "Del"
	res := scan(t, newTestScanner(nil, ai), ScanRequest{Action: models.ActionTypeAIValidation, Column: "Vendor", Values: vals})
	if len(ai.got.Sample) != 50 || ai.got.Sample[0].RowNumber != 2 {
		t.Fatalf("expected the first 50 rows as sample, got %d", len(ai.got.Sample))
	}
	want := []models.Issue{{RowNumber: 3, CurrentValue: "Del", SuggestedFix: "Dell", Reason: "Typo",
		Severity: models.SeverityWarning, Status: models.IssueStatusPending}}
	if diff := cmp.Diff(want, res.Issues); diff != "" {
		t.Fatalf("issues (-want +got):\n%s", diff)
	}
	if res.TokensUsed != 321 {
		t.Fatalf("expected token usage to pass through, got %d", res.TokensUsed)
	}
}

func TestScanAI_FailuresAreEmpty(t *testing.T) {
	cases := []*stubSuggester{
		{err: errors.New("timeout")},
		{completion: aisuggest.Completion{Text: "I could not find anything", TokensUsed: 40}},
		{completion: aisuggest.Completion{Text: "{not json}", TokensUsed: 40}},
	}
	for _, ai := range cases {
		res := scan(t, newTestScanner(nil, ai), ScanRequest{Action: models.ActionTypeAIValidation, Values: values("a")})
		if len(res.Issues) != 0 || res.TokensUsed != 0 || res.Unavailable == "" {
			t.Fatalf("expected an empty degraded result, got %+v", res)
		}
	}
	res := scan(t, newTestScanner(nil, nil), ScanRequest{Action: models.ActionTypeAIValidation, Values: values("a")})
	if len(res.Issues) != 0 || res.TokensUsed != 0 {
		t.Fatalf("a missing suggester must yield an empty result, got %+v", res)
	}
}

func TestScan_CapsAtMaxIssues(t *testing.T) {
	vals := make([]any, 250)
	for i := range vals {
		vals[i] = " padded "
	}
	s := newTestScanner(nil, nil)
	for _, action := range []models.ActionType{models.ActionTypeWhitespace, models.ActionTypeDuplicates, models.ActionTypeEmpty} {
		in := vals
		if action == models.ActionTypeEmpty {
			in = make([]any, 250)
		}
		res := scan(t, s, ScanRequest{Action: action, Values: in})
		if len(res.Issues) != models.MaxIssuesPerScan {
			t.Fatalf("%s: expected %d issues, got %d", action, models.MaxIssuesPerScan, len(res.Issues))
		}
	}
}

func TestScan_IsIdempotent(t *testing.T) {
	s := newTestScanner(reference.NewStaticSource([]string{"Dell"}), nil)
	vals := values("X", " Y", "X", "rack#1", nil, "dall", "new york", "$5")
	for _, action := range models.AllActionTypes {
		req := ScanRequest{Action: action, Column: "City", ColumnType: models.ColumnTypeString,
			Subtype: "serial-number", ReferenceTable: "t", Values: vals}
		first := scan(t, s, req)
		second := scan(t, s, req)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s: second scan differs (-first +second):\n%s", action, diff)
		}
	}
}

func TestScan_UnsupportedAction(t *testing.T) {
	_, err := newTestScanner(nil, nil).Scan(context.Background(), ScanRequest{Action: "bogus"})
	if !errors.Is(err, utils.ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestSmartCapitalize(t *testing.T) {
	cases := []struct {
		value string
		skip  bool
		fix   string
	}{
		{"new york", false, "New York"},
		{"NEW YORK", false, "New York"},
		{"bank of america", false, "Bank of America"},
		{"the hague", false, "The Hague"},
		{"IBM server", false, "IBM Server"},
		{"Dell", false, "Dell"},
		{"SRV-001", true, ""},
		{"ABC", true, ""},
		{"ops@example.com", true, ""},
		{"room 12", true, ""},
	}
	for _, tc := range cases {
		got := SmartCapitalize(tc.value)
		if got.ShouldSkip != tc.skip || got.SuggestedFix != tc.fix {
			t.Fatalf("SmartCapitalize(%q) = %+v", tc.value, got)
		}
	}
}

func TestNormalizeCity(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
		found    bool
	}{
		{"new york", "New York", true},
		{"NewYork", "New York", true},
		{"NYC", "New York", true},
		{"Sanfransisco", "San Francisco", true},
		{"Bombay", "Mumbai", true},
		{"Gotham", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeCity(tc.raw)
		if got != tc.expected || ok != tc.found {
			t.Fatalf("NormalizeCity(%q) = %q, %v", tc.raw, got, ok)
		}
	}
}

func TestPlanActions(t *testing.T) {
	p := NewPlanner(subtypes.Default())
	types := func(actions []models.Action) []models.ActionType {
		var out []models.ActionType
		for _, a := range actions {
			out = append(out, a.Type)
		}
		return out
	}

	actions := p.PlanActions("Site City", models.ColumnTypeString, models.ColumnStats{
		TotalRecords: 100, EmptyCount: 25, DuplicateCount: 5, IsReferenceData: true,
	})
	want := []models.ActionType{
		models.ActionTypeDuplicates, models.ActionTypeEmpty, models.ActionTypeFormatValidation,
		models.ActionTypeWhitespace, models.ActionTypeCapitalization, models.ActionTypeSpecialChars,
		models.ActionTypeCityNormalization, models.ActionTypeReferenceValidation, models.ActionTypeAIValidation,
	}
	if diff := cmp.Diff(want, types(actions)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if actions[0].Severity != models.SeverityInfo || actions[1].Severity != models.SeverityCritical {
		t.Fatalf("unexpected severities %s, %s", actions[0].Severity, actions[1].Severity)
	}
	if *actions[0].IssueCount != 5 || actions[7].IssueCount != nil || actions[8].IssueCount != nil {
		t.Fatalf("unexpected issue counts")
	}

	actions = p.PlanActions("Unit Price", models.ColumnTypeNumber, models.ColumnStats{TotalRecords: 10})
	want = []models.ActionType{models.ActionTypeFormatValidation, models.ActionTypeCurrency, models.ActionTypeCommas, models.ActionTypeAIValidation}
	if diff := cmp.Diff(want, types(actions)); diff != "" {
		t.Fatalf("number order (-want +got):\n%s", diff)
	}
	if actions[0].Subtype != "currency" || !actions[0].AutoDetected || actions[0].Severity != models.SeverityWarning {
		t.Fatalf("unexpected format action %+v", actions[0])
	}
}

func TestPlanActions_Severities(t *testing.T) {
	p := NewPlanner(subtypes.Default())
	cases := []struct {
		stats     models.ColumnStats
		duplicate models.Severity
		empty     models.Severity
	}{
		{models.ColumnStats{TotalRecords: 100, DuplicateCount: 11, EmptyCount: 6}, models.SeverityWarning, models.SeverityWarning},
		{models.ColumnStats{TotalRecords: 100, DuplicateCount: 10, EmptyCount: 5}, models.SeverityInfo, models.SeverityInfo},
		{models.ColumnStats{TotalRecords: 100, DuplicateCount: 1, EmptyCount: 21, IsUniqueQualifier: true}, models.SeverityCritical, models.SeverityCritical},
	}
	for _, tc := range cases {
		actions := p.PlanActions("Anything", models.ColumnTypeDate, tc.stats)
		if actions[0].Severity != tc.duplicate || actions[1].Severity != tc.empty {
			t.Fatalf("stats %+v gave %s/%s", tc.stats, actions[0].Severity, actions[1].Severity)
		}
	}
}

func TestPlanActions_FormatDescription(t *testing.T) {
	p := NewPlanner(subtypes.Default())
	chosen := p.PlanActions("Anything", models.ColumnTypeString, models.ColumnStats{Subtype: "mac-address"})
	if chosen[0].Subtype != "mac-address" || chosen[0].AutoDetected || !strings.Contains(chosen[0].Description, "MAC Address") {
		t.Fatalf("unexpected action %+v", chosen[0])
	}
	generic := p.PlanActions("Notes", models.ColumnTypeBoolean, models.ColumnStats{})
	if generic[0].Subtype != "" || generic[0].AutoDetected || !strings.Contains(generic[0].Description, "boolean") {
		t.Fatalf("unexpected generic action %+v", generic[0])
	}
}

func TestMemoryIssueCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryIssueCache()
	key := CacheKey{WorkbookID: "wb", Column: "Name", Action: models.ActionTypeWhitespace}
	other := CacheKey{WorkbookID: "wb", Column: "Serial", Action: models.ActionTypeWhitespace}
	res := &ScanResult{Issues: []models.Issue{{RowNumber: 2}}}
	cache.Put(ctx, key, res)
	cache.Put(ctx, other, res)

	res.Issues[0].RowNumber = 99
	got, ok, err := cache.Get(ctx, key)
	if err != nil || !ok || got.Issues[0].RowNumber != 2 {
		t.Fatalf("cache must hold its own copy, got %+v %v %v", got, ok, err)
	}

	cache.InvalidateColumn(ctx, "wb", "Name")
	if _, ok, _ := cache.Get(ctx, key); ok {
		t.Fatalf("column invalidation left the entry behind")
	}
	if _, ok, _ := cache.Get(ctx, other); !ok {
		t.Fatalf("column invalidation removed another column")
	}
	cache.InvalidateWorkbook(ctx, "wb")
	if _, ok, _ := cache.Get(ctx, other); ok {
		t.Fatalf("workbook invalidation left an entry behind")
	}
}
