package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
	"github.com/ttacon/libphonenumber"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

type Result struct {
	Valid              bool   `json:"valid"`
	Warning            bool   `json:"warning,omitempty"`
	NeedsNormalization bool   `json:"needsNormalization,omitempty"`
	Reason             string `json:"reason,omitempty"`
	Severity           string `json:"severity,omitempty"`
	SuggestedFix       string `json:"suggestedFix,omitempty"`
}

// Flagged reports whether the cell deserves an issue.
func (r Result) Flagged() bool {
	return !r.Valid || r.Warning || r.NeedsNormalization
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(reason string) Result {
	return Result{Valid: false, Reason: reason, Severity: SeverityError}
}

func normalize(reason, suggestion string) Result {
	return Result{Valid: true, NeedsNormalization: true, Reason: reason, Severity: SeverityWarning, SuggestedFix: suggestion}
}

var reAlnumSafe = regexp.MustCompile(`[^A-Za-z0-9 _.\-]`)

// Validator checks cell values against the subtype catalog.
type Validator struct {
	registry *subtypes.Registry
	validate *validator.Validate
}

func New(registry *subtypes.Registry) *Validator {
	return &Validator{
		registry: registry,
		validate: validator.New(),
	}
}

func (v *Validator) Registry() *subtypes.Registry {
	return v.registry
}

// Validate decides whether value is valid for the subtype, or for columnType alone when the subtype
// is empty or unknown. Empty values are the empty action's business and always pass here.
func (v *Validator) Validate(value string, subtypeId string, columnType models.ColumnType) Result {
	if value == "" {
		return valid()
	}
	rule, ok := v.registry.Lookup(subtypeId)
	if !ok {
		return v.validateGeneric(value, columnType)
	}
	switch rule.Family {
	case subtypes.FamilyString:
		return v.validateString(value, rule)
	case subtypes.FamilyNumber:
		return validateNumber(value, rule)
	case subtypes.FamilyDate:
		return validateDate(value, rule)
	case subtypes.FamilyBoolean:
		return validateBoolean(value, rule)
	}
	return v.validateGeneric(value, columnType)
}

func (v *Validator) validateGeneric(value string, columnType models.ColumnType) Result {
	switch columnType {
	case models.ColumnTypeNumber:
		d, normalized, err := ParseNumber(value)
		if err != nil {
			return invalid("Not a valid number")
		}
		if normalized {
			return normalize("Number contains symbols or separators", d.String())
		}
		return valid()
	case models.ColumnTypeDate:
		if _, _, ok := ParseDate(value, subtypes.DateLayouts); !ok {
			return invalid("Not a valid date")
		}
		return valid()
	case models.ColumnTypeBoolean:
		if _, ok := BooleanValue(value); !ok {
			return invalid(fmt.Sprintf("'%s' is not a recognised boolean (true/false, yes/no, y/n, 1/0)", value))
		}
		return valid()
	case models.ColumnTypeAlphanumeric:
		if reAlnumSafe.MatchString(value) {
			stripped := strings.TrimSpace(reAlnumSafe.ReplaceAllString(value, ""))
			return Result{
				Valid:        true,
				Warning:      true,
				Reason:       "Contains characters other than letters, digits, spaces, _ . -",
				Severity:     SeverityWarning,
				SuggestedFix: stripped,
			}
		}
		return valid()
	}
	return valid()
}

func (v *Validator) validateString(value string, rule *subtypes.Rule) Result {
	s := rule.String
	length := utf8.RuneCountInString(value)
	if s.MinLength > 0 && length < s.MinLength {
		return invalid(renderLength(s.TooShort, length, s))
	}
	if s.MaxLength > 0 && length > s.MaxLength {
		return invalid(renderLength(s.TooLong, length, s))
	}
	if s.Pattern != nil && !s.Pattern.MatchString(value) {
		return invalid(formatReason(rule))
	}
	if s.Tag != "" {
		if err := v.validate.Var(value, s.Tag); err != nil {
			return invalid(formatReason(rule))
		}
	}
	switch s.Semantic {
	case subtypes.SemanticIPv4Octets:
		for _, part := range strings.Split(value, ".") {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 || n > 255 {
				return invalid(fmt.Sprintf("Octet %s out of range (0-255)", part))
			}
		}
	case subtypes.SemanticPhone:
		p, err := libphonenumber.Parse(value, v.registry.PhoneRegion())
		if err != nil || !libphonenumber.IsValidNumber(p) {
			return invalid(fmt.Sprintf("Phone number is not valid for region %s", v.registry.PhoneRegion()))
		}
	case subtypes.SemanticUUID:
		if _, err := uuid.Parse(value); err != nil {
			return invalid(formatReason(rule))
		}
	}
	return valid()
}

func renderLength(template string, length int, s *subtypes.StringRule) string {
	if template == "" {
		template = "Length {length} outside allowed range {min}-{max}"
	}
	return strings.NewReplacer(
		"{length}", strconv.Itoa(length),
		"{min}", strconv.Itoa(s.MinLength),
		"{max}", strconv.Itoa(s.MaxLength),
	).Replace(template)
}

func formatReason(rule *subtypes.Rule) string {
	if rule.String != nil && rule.String.Format != "" {
		return rule.String.Format
	}
	return "Invalid " + rule.Name + " format"
}

func validateNumber(value string, rule *subtypes.Rule) Result {
	n := rule.Number
	d, normalized, err := ParseNumber(value)
	if err != nil {
		return invalid(fmt.Sprintf("'%s' is not a valid %s", value, strings.ToLower(rule.Name)))
	}
	if n.Min.Valid && n.Max.Valid && (d.LessThan(n.Min.Decimal) || d.GreaterThan(n.Max.Decimal)) {
		return invalid(fmt.Sprintf("%s must be between %s and %s (got %s)", rule.Name, n.Min.Decimal, n.Max.Decimal, d))
	}
	if n.Min.Valid && d.LessThan(n.Min.Decimal) {
		return invalid(fmt.Sprintf("%s below minimum %s (got %s)", rule.Name, n.Min.Decimal, d))
	}
	if n.Max.Valid && d.GreaterThan(n.Max.Decimal) {
		return invalid(fmt.Sprintf("%s above maximum %s (got %s)", rule.Name, n.Max.Decimal, d))
	}
	if n.IntegerOnly && !d.IsInteger() {
		return Result{Valid: false, Reason: fmt.Sprintf("%s must be a whole number", rule.Name),
			Severity: SeverityError, SuggestedFix: d.Round(0).String()}
	}
	if n.DecimalPlaces >= 0 && !d.Equal(d.Round(int32(n.DecimalPlaces))) {
		return normalize(fmt.Sprintf("%s allows at most %d decimal places", rule.Name, n.DecimalPlaces),
			formatNumber(d.Round(int32(n.DecimalPlaces)), n.DecimalPlaces))
	}
	if normalized {
		if n.DecimalPlaces >= 0 {
			return normalize("Number contains symbols or separators", formatNumber(d, n.DecimalPlaces))
		}
		return normalize("Number contains symbols or separators", d.String())
	}
	return valid()
}

// ParseDate tries each layout in order and reports the first that parses.
func ParseDate(value string, layouts []string) (time.Time, string, bool) {
	s := strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

var timeLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM", "3:04:05 PM"}

// alternateLayouts lists the layouts a value may be normalised from for rule.
func alternateLayouts(rule *subtypes.Rule) []string {
	if rule.Date.Layout == "15:04:05" {
		return timeLayouts
	}
	var out []string
	for _, l := range subtypes.DateLayouts {
		if l == "15:04:05" || l == "15:04" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func validateDate(value string, rule *subtypes.Rule) Result {
	d := rule.Date
	if _, err := time.Parse(d.Layout, strings.TrimSpace(value)); err == nil {
		if strings.TrimSpace(value) != value {
			return normalize("Date has surrounding whitespace", strings.TrimSpace(value))
		}
		return valid()
	}
	if t, _, ok := ParseDate(value, alternateLayouts(rule)); ok {
		return normalize(fmt.Sprintf("Date not in expected format %s", d.Display), t.Format(d.Layout))
	}
	return invalid(fmt.Sprintf("Not a valid date (expected %s)", d.Display))
}

// BooleanValue maps the broad boolean vocabulary, case-insensitively.
func BooleanValue(value string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	for _, w := range subtypes.TrueWords {
		if s == w {
			return true, true
		}
	}
	for _, w := range subtypes.FalseWords {
		if s == w {
			return false, true
		}
	}
	return false, false
}

func validateBoolean(value string, rule *subtypes.Rule) Result {
	b := rule.Boolean
	if value == b.True || value == b.False {
		return valid()
	}
	s := strings.TrimSpace(value)
	var canonical string
	switch {
	case strings.EqualFold(s, b.True):
		canonical = b.True
	case strings.EqualFold(s, b.False):
		canonical = b.False
	default:
		truth, ok := BooleanValue(s)
		if !ok {
			return invalid(fmt.Sprintf("'%s' is not a recognised %s value", value, rule.Name))
		}
		canonical = b.False
		if truth {
			canonical = b.True
		}
	}
	return normalize(fmt.Sprintf("'%s' should be '%s' for %s columns", value, canonical, rule.Name), canonical)
}
