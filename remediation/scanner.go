package remediation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmdatafocus/cmdb_cleanser/aisuggest"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/reference"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/validation"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
)

const (
	aiSampleRows            = 50
	referenceFuzzyThreshold = 3
	referenceMaxSuggestions = 3
)

var reSpecialChars = regexp.MustCompile(`[^A-Za-z0-9 _.\-]`)

type ScanRequest struct {
	Action            models.ActionType
	Column            string
	ColumnType        models.ColumnType
	Subtype           string
	Values            []any
	IsUniqueQualifier bool
	ReferenceTable    string
	// ListAll also reports valid and empty cells for reference validation.
	ListAll bool
}

type ScanResult struct {
	Issues     []models.Issue `json:"issues"`
	TokensUsed int            `json:"tokensUsed"`
	// Unavailable explains why an external collaborator could not be consulted.
	Unavailable string `json:"unavailable,omitempty"`
}

// Scanner finds the offending rows of a column for one action.
type Scanner struct {
	validator *validation.Validator
	reference reference.Source
	suggester aisuggest.Suggester
}

// NewScanner wires the scanner. ref and ai may be nil, in which case their actions report unavailable.
func NewScanner(v *validation.Validator, ref reference.Source, ai aisuggest.Suggester) *Scanner {
	return &Scanner{validator: v, reference: ref, suggester: ai}
}

// Scan runs one action's strategy over the column. Only an unsupported action is an error; failing
// collaborators degrade to an empty result with Unavailable set.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	var (
		issues []models.Issue
		result = &ScanResult{}
	)
	switch req.Action {
	case models.ActionTypeDuplicates:
		issues = scanDuplicates(req)
	case models.ActionTypeEmpty:
		issues = scanEmpty(req)
	case models.ActionTypeFormatValidation:
		issues = s.scanFormat(req)
	case models.ActionTypeWhitespace:
		issues = scanEach(req, func(v string) (string, string, models.Severity, bool) {
			fixed := strings.Join(strings.Fields(v), " ")
			return fixed, "Leading, trailing or repeated whitespace", models.SeverityInfo, fixed != v
		})
	case models.ActionTypeCapitalization:
		issues = scanEach(req, func(v string) (string, string, models.Severity, bool) {
			res := SmartCapitalize(v)
			if res.ShouldSkip || res.SuggestedFix == v {
				return "", "", "", false
			}
			return res.SuggestedFix, res.Reason, models.SeverityInfo, true
		})
	case models.ActionTypeSpecialChars:
		issues = scanEach(req, scanSpecialChars)
	case models.ActionTypeCityNormalization:
		issues = scanEach(req, func(v string) (string, string, models.Severity, bool) {
			canonical, ok := NormalizeCity(v)
			if !ok || canonical == v {
				return "", "", "", false
			}
			return canonical, fmt.Sprintf("Non-standard city name, expected '%s'", canonical), models.SeverityInfo, true
		})
	case models.ActionTypeCurrency:
		issues = scanEach(req, func(v string) (string, string, models.Severity, bool) {
			if !validation.HasCurrencySymbol(v) {
				return "", "", "", false
			}
			return validation.StripCurrency(v), "Contains a currency symbol", models.SeverityInfo, true
		})
	case models.ActionTypeCommas:
		issues = scanEach(req, func(v string) (string, string, models.Severity, bool) {
			if !strings.Contains(v, ",") {
				return "", "", "", false
			}
			return strings.ReplaceAll(v, ",", ""), "Contains thousands separators", models.SeverityInfo, true
		})
	case models.ActionTypeReferenceValidation:
		issues, result.Unavailable = s.scanReference(ctx, req)
	case models.ActionTypeAIValidation:
		issues, result.TokensUsed, result.Unavailable = s.scanAI(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", utils.ErrUnsupportedAction, req.Action)
	}
	result.Issues = capIssues(issues)
	return result, nil
}

func capIssues(issues []models.Issue) []models.Issue {
	if issues == nil {
		return []models.Issue{}
	}
	if len(issues) > models.MaxIssuesPerScan {
		return issues[:models.MaxIssuesPerScan]
	}
	return issues
}

func newIssue(index int, current, fix, reason string, severity models.Severity) models.Issue {
	return models.Issue{
		RowNumber:    models.RowNumber(index),
		CurrentValue: current,
		SuggestedFix: fix,
		Reason:       reason,
		Severity:     severity,
		Status:       models.IssueStatusPending,
	}
}

// scanEach applies check to every non-empty cell, stopping once the cap is reached.
func scanEach(req ScanRequest, check func(string) (fix, reason string, severity models.Severity, flagged bool)) []models.Issue {
	var issues []models.Issue
	for i, cell := range req.Values {
		if workbook.IsEmpty(cell) {
			continue
		}
		v := workbook.Text(cell)
		if fix, reason, severity, flagged := check(v); flagged {
			issues = append(issues, newIssue(i, v, fix, reason, severity))
			if len(issues) == models.MaxIssuesPerScan {
				break
			}
		}
	}
	return issues
}

func scanDuplicates(req ScanRequest) []models.Issue {
	severity := models.SeverityWarning
	if req.IsUniqueQualifier {
		severity = models.SeverityCritical
	}
	first := make(map[string]int)
	var issues []models.Issue
	for i, cell := range req.Values {
		if workbook.IsEmpty(cell) {
			continue
		}
		v := workbook.Text(cell)
		if v == "" || v == "null" || v == "undefined" {
			continue
		}
		firstRow, seen := first[v]
		if !seen {
			first[v] = models.RowNumber(i)
			continue
		}
		issues = append(issues, newIssue(i, v,
			fmt.Sprintf("Duplicate of row %d", firstRow),
			fmt.Sprintf("Value '%s' already appears in row %d", v, firstRow),
			severity))
	}
	return issues
}

func scanEmpty(req ScanRequest) []models.Issue {
	var issues []models.Issue
	for i, cell := range req.Values {
		if workbook.IsEmpty(cell) {
			issues = append(issues, newIssue(i, "", "N/A or Unknown", "Empty value", models.SeverityWarning))
		}
	}
	return issues
}

func (s *Scanner) scanFormat(req ScanRequest) []models.Issue {
	return scanEach(req, func(v string) (string, string, models.Severity, bool) {
		res := s.validator.Validate(v, req.Subtype, req.ColumnType)
		if !res.Flagged() {
			return "", "", "", false
		}
		fix := res.SuggestedFix
		if fix == "" {
			if req.Subtype != "" {
				fix = s.validator.GenerateFix(v, req.Subtype, req.ColumnType)
			} else {
				fix = models.ManualCheckRequired
			}
		}
		// Applying the fix must clear the issue, otherwise a human has to decide.
		if fix != models.ManualCheckRequired && (fix == v || !s.validator.Validate(fix, req.Subtype, req.ColumnType).Valid) {
			fix = models.ManualCheckRequired
		}
		severity := models.SeverityWarning
		if res.Severity == validation.SeverityError {
			severity = models.SeverityCritical
		}
		return fix, res.Reason, severity, true
	})
}

func scanSpecialChars(v string) (string, string, models.Severity, bool) {
	found := reSpecialChars.FindAllString(v, -1)
	if len(found) == 0 {
		return "", "", "", false
	}
	var distinct []string
	seen := make(map[string]bool)
	for _, c := range found {
		if !seen[c] {
			seen[c] = true
			distinct = append(distinct, c)
		}
	}
	fix := strings.TrimSpace(reSpecialChars.ReplaceAllString(v, ""))
	if fix == "" {
		fix = models.ManualCheckRequired
	}
	return fix, "Contains special characters: " + strings.Join(distinct, " "), models.SeverityWarning, true
}

type candidate struct {
	name string
	dist int
}

func (s *Scanner) scanReference(ctx context.Context, req ScanRequest) ([]models.Issue, string) {
	if s.reference == nil {
		return nil, "reference lookup is not configured"
	}
	if req.ReferenceTable == "" {
		return nil, "no reference table configured for column " + req.Column
	}
	names, err := s.reference.Names(ctx, req.ReferenceTable)
	if err != nil {
		config.LogError(config.GetLogger(), "remediation", "scanReference", "reference lookup", req.ReferenceTable, err)
		return nil, fmt.Sprintf("%v: %v", utils.ErrReferenceUnavailable, err)
	}
	known := reference.NewKnownSet(names)
	keys := known.Keys()

	var issues []models.Issue
	for i, cell := range req.Values {
		if len(issues) == models.MaxIssuesPerScan {
			break
		}
		if workbook.IsEmpty(cell) {
			if req.ListAll {
				issues = append(issues, newIssue(i, "(empty)", models.ManualCheckRequired, "Empty reference value", models.SeverityInfo))
			}
			continue
		}
		v := workbook.Text(cell)
		lower := strings.ToLower(strings.TrimSpace(v))
		if canonical, ok := known[lower]; ok {
			if req.ListAll {
				issues = append(issues, newIssue(i, v, canonical, "✓ Valid", models.SeverityInfo))
			}
			continue
		}
		var matches []candidate
		for _, k := range keys {
			if IsSimilar(lower, k, referenceFuzzyThreshold) {
				matches = append(matches, candidate{name: known[k], dist: distance(lower, k)})
			}
		}
		sort.SliceStable(matches, func(a, b int) bool { return matches[a].dist < matches[b].dist })
		if len(matches) > referenceMaxSuggestions {
			matches = matches[:referenceMaxSuggestions]
		}
		if len(matches) == 0 {
			issues = append(issues, newIssue(i, v, models.ManualCheckRequired,
				fmt.Sprintf("Not found in %s and no close match", req.ReferenceTable), models.SeverityCritical))
			continue
		}
		options := make([]string, len(matches))
		for j, m := range matches {
			options[j] = m.name
		}
		issues = append(issues, newIssue(i, v, matches[0].name,
			fmt.Sprintf("Not found in %s; did you mean: %s", req.ReferenceTable, strings.Join(options, ", ")),
			models.SeverityWarning))
	}
	return issues, ""
}

type aiIssue struct {
	RowNumber    int    `json:"rowNumber"`
	CurrentValue any    `json:"currentValue"`
	SuggestedFix any    `json:"suggestedFix"`
	Reason       string `json:"reason"`
}

type aiResponse struct {
	Issues []aiIssue `json:"issues"`
}

func (s *Scanner) scanAI(ctx context.Context, req ScanRequest) ([]models.Issue, int, string) {
	if s.suggester == nil {
		return nil, 0, "AI suggestions are not configured"
	}
	n := len(req.Values)
	if n > aiSampleRows {
		n = aiSampleRows
	}
	sample := make([]aisuggest.SampleValue, 0, n)
	for i := 0; i < n; i++ {
		sample = append(sample, aisuggest.SampleValue{
			RowNumber: models.RowNumber(i),
			Value:     workbook.Text(req.Values[i]),
		})
	}
	completion, err := s.suggester.Suggest(ctx, aisuggest.Request{
		Column:     req.Column,
		ColumnType: string(req.ColumnType),
		Subtype:    req.Subtype,
		Sample:     sample,
	})
	if err != nil {
		config.LogError(config.GetLogger(), "remediation", "scanAI", "suggest", req.Column, err)
		return nil, 0, "AI analysis failed: " + err.Error()
	}
	parsed, err := ParseAIIssues(completion.Text, req.Values)
	if err != nil {
		config.LogError(config.GetLogger(), "remediation", "scanAI", "parse response", req.Column, err)
		return nil, 0, "AI analysis returned an unreadable response"
	}
	return parsed, completion.TokensUsed, ""
}

var errNoJSONObject = errors.New("no JSON object in response")

// ParseAIIssues extracts the {issues:[...]} object from a model reply, tolerating code fences and
// surrounding prose. Rows outside the column are dropped; the current value is taken from the data.
func ParseAIIssues(text string, values []any) ([]models.Issue, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	var resp aiResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, err
	}
	var issues []models.Issue
	for _, it := range resp.Issues {
		idx := models.RowIndex(it.RowNumber)
		if idx < 0 || idx >= len(values) {
			continue
		}
		fix := models.ManualCheckRequired
		if it.SuggestedFix != nil {
			if s := strings.TrimSpace(fmt.Sprint(it.SuggestedFix)); s != "" {
				fix = s
			}
		}
		reason := it.Reason
		if reason == "" {
			reason = "Flagged by AI analysis"
		}
		issues = append(issues, newIssue(idx, workbook.Text(values[idx]), fix, reason, models.SeverityWarning))
	}
	sort.SliceStable(issues, func(a, b int) bool { return issues[a].RowNumber < issues[b].RowNumber })
	return issues, nil
}
