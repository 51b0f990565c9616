package validation

import (
	"strconv"
	"strings"
	"testing"

	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
)

func newTestValidator() *Validator {
	return New(subtypes.Default())
}

func TestValidate_LengthReasonsEmbedObservedLength(t *testing.T) {
	v := newTestValidator()
	reg := v.Registry()
	for _, id := range reg.IDs() {
		rule, _ := reg.Lookup(id)
		if rule.Family != subtypes.FamilyString {
			continue
		}
		s := rule.String
		if s.MinLength > 1 {
			short := strings.Repeat("a", s.MinLength-1)
			res := v.Validate(short, id, models.ColumnTypeString)
			if res.Valid {
				t.Fatalf("%s: %d chars should be too short", id, len(short))
			}
			if !strings.Contains(res.Reason, strconv.Itoa(len(short))) {
				t.Fatalf("%s: reason %q does not embed length %d", id, res.Reason, len(short))
			}
		}
		if s.MaxLength > 0 {
			long := strings.Repeat("a", s.MaxLength+1)
			res := v.Validate(long, id, models.ColumnTypeString)
			if res.Valid {
				t.Fatalf("%s: %d chars should be too long", id, len(long))
			}
			if !strings.Contains(res.Reason, strconv.Itoa(len(long))) {
				t.Fatalf("%s: reason %q does not embed length %d", id, res.Reason, len(long))
			}
		}
	}
}

func TestValidate_StringSubtypes(t *testing.T) {
	v := newTestValidator()
	cases := []struct {
		value   string
		subtype string
		valid   bool
		reason  string
	}{
		{"10.0.0.1", "ip-address-v4", true, ""},
		{"10.0.0.256", "ip-address-v4", false, "Octet 256 out of range"},
		{"10.0.0.x", "ip-address-v4", false, "four dot-separated"},
		{"00:1A:2B:3C:4D:5E", "mac-address", true, ""},
		{"00-1A-2B-3C-4D-5E", "mac-address", true, ""},
		{"001A2B3C4D5E", "mac-address", false, "too short (12"},
		{"ops@example.com", "email", true, ""},
		{"ops.example.com", "email", false, "email"},
		{"https://example.com/a", "url", true, ""},
		{"example.com", "url", false, "scheme"},
		{"web-01", "hostname", true, ""},
		{"web_01", "hostname", false, "Hostname may only"},
		{"db01.corp.example.com", "fqdn", true, ""},
		{"+1 650-253-0000", "phone-number", true, ""},
		{"+1 000-000-0000", "phone-number", false, "not valid for region"},
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", "uuid", true, ""},
		{"9d385017c611228701d22104cc95c371", "sys-id", true, ""},
		{"SN-12345", "serial-number", true, ""},
		{"SN 12345", "serial-number", false, "Serial number may only"},
		{"1.2.3", "version", true, ""},
	}
	for _, tc := range cases {
		res := v.Validate(tc.value, tc.subtype, models.ColumnTypeString)
		if res.Valid != tc.valid {
			t.Fatalf("Validate(%q, %s) valid=%v reason=%q", tc.value, tc.subtype, res.Valid, res.Reason)
		}
		if !tc.valid {
			if res.Severity != SeverityError {
				t.Fatalf("Validate(%q, %s) severity %q", tc.value, tc.subtype, res.Severity)
			}
			if !strings.Contains(res.Reason, tc.reason) {
				t.Fatalf("Validate(%q, %s) reason %q should contain %q", tc.value, tc.subtype, res.Reason, tc.reason)
			}
		}
	}
}

func TestValidate_EmptyIsNeverEvaluated(t *testing.T) {
	v := newTestValidator()
	if res := v.Validate("", "serial-number", models.ColumnTypeString); !res.Valid || res.Flagged() {
		t.Fatalf("empty value should pass, got %+v", res)
	}
}

func TestValidate_Numbers(t *testing.T) {
	v := newTestValidator()
	cases := []struct {
		value     string
		subtype   string
		valid     bool
		normalize bool
		fix       string
	}{
		{"42", "percentage", true, false, ""},
		{"101", "percentage", false, false, ""},
		{"-1", "percentage", false, false, ""},
		{"$1,200.50", "currency", true, true, "1200.50"},
		{"12.345", "currency", true, true, "12.35"},
		{"12.5", "currency", true, false, ""},
		{"4.5", "cpu-count", false, false, "5"},
		{"abc", "integer", false, false, ""},
		{"70000", "port-number", false, false, ""},
	}
	for _, tc := range cases {
		res := v.Validate(tc.value, tc.subtype, models.ColumnTypeNumber)
		if res.Valid != tc.valid || res.NeedsNormalization != tc.normalize {
			t.Fatalf("Validate(%q, %s) = %+v", tc.value, tc.subtype, res)
		}
		if tc.fix != "" && res.SuggestedFix != tc.fix {
			t.Fatalf("Validate(%q, %s) suggested %q, expected %q", tc.value, tc.subtype, res.SuggestedFix, tc.fix)
		}
	}
}

func TestValidate_GenericTypeChecks(t *testing.T) {
	v := newTestValidator()
	cases := []struct {
		value    string
		colType  models.ColumnType
		flagged  bool
		severity string
	}{
		{"12.5", models.ColumnTypeNumber, false, ""},
		{"twelve", models.ColumnTypeNumber, true, SeverityError},
		{"2024-02-29", models.ColumnTypeDate, false, ""},
		{"2023-02-29", models.ColumnTypeDate, true, SeverityError},
		{"Y", models.ColumnTypeBoolean, false, ""},
		{"maybe", models.ColumnTypeBoolean, true, SeverityError},
		{"AB-12#", models.ColumnTypeAlphanumeric, true, SeverityWarning},
		{"anything goes!", models.ColumnTypeString, false, ""},
	}
	for _, tc := range cases {
		res := v.Validate(tc.value, "", tc.colType)
		if res.Flagged() != tc.flagged {
			t.Fatalf("Validate(%q, %s) flagged=%v: %+v", tc.value, tc.colType, res.Flagged(), res)
		}
		if tc.flagged && res.Severity != tc.severity {
			t.Fatalf("Validate(%q, %s) severity %q, expected %q", tc.value, tc.colType, res.Severity, tc.severity)
		}
	}
}

func TestValidate_BooleanNormalization(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("Y", "boolean-true-false", models.ColumnTypeBoolean)
	if !res.Valid || !res.NeedsNormalization || res.SuggestedFix != "true" || res.Severity != SeverityWarning {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := v.Validate("false", "boolean-true-false", models.ColumnTypeBoolean); res.Flagged() {
		t.Fatalf("canonical value flagged: %+v", res)
	}
	if res := v.Validate("perhaps", "boolean-yes-no", models.ColumnTypeBoolean); res.Valid {
		t.Fatalf("unknown vocabulary accepted: %+v", res)
	}
}

func TestValidate_DateNormalization(t *testing.T) {
	v := newTestValidator()
	res := v.Validate("03/15/2024", "date-only", models.ColumnTypeDate)
	if !res.NeedsNormalization || res.SuggestedFix != "2024-03-15" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := v.Validate("2024-13-01", "date-only", models.ColumnTypeDate); res.Valid {
		t.Fatalf("month 13 accepted: %+v", res)
	}
}
