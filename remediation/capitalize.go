package remediation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CapitalizeResult is the smart-capitalize verdict for one value.
type CapitalizeResult struct {
	ShouldSkip   bool   `json:"shouldSkip"`
	SuggestedFix string `json:"suggestedFix"`
	Reason       string `json:"reason"`
}

var (
	reCodeLike = regexp.MustCompile(`^[A-Za-z0-9]+([-_./:][A-Za-z0-9]+)+$`)
	reHasDigit = regexp.MustCompile(`\d`)
)

var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true, "by": true, "de": true,
	"for": true, "in": true, "of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
}

// SmartCapitalize title-cases free text while leaving codes, acronyms, serial-like tokens, emails and
// URLs alone.
func SmartCapitalize(value string) CapitalizeResult {
	s := strings.TrimSpace(value)
	switch {
	case s == "":
		return CapitalizeResult{ShouldSkip: true, Reason: "empty"}
	case strings.Contains(s, "@") || strings.Contains(s, "://"):
		return CapitalizeResult{ShouldSkip: true, Reason: "email or URL"}
	case reHasDigit.MatchString(s):
		return CapitalizeResult{ShouldSkip: true, Reason: "contains digits, looks like a code"}
	case reCodeLike.MatchString(s):
		return CapitalizeResult{ShouldSkip: true, Reason: "code-like token"}
	case !strings.Contains(s, " ") && isUpper(s) && len(s) <= 5:
		return CapitalizeResult{ShouldSkip: true, Reason: "acronym"}
	}

	allUpper := isUpper(s)
	caser := cases.Title(language.English)
	words := strings.Split(value, " ")
	first := true
	for i, w := range words {
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		switch {
		case !allUpper && len(w) > 1 && isUpper(w):
			// acronym inside mixed text, e.g. "IBM server"
		case !first && minorWords[lower]:
			words[i] = lower
		default:
			words[i] = caser.String(w)
		}
		first = false
	}
	fix := strings.Join(words, " ")
	if fix == value {
		return CapitalizeResult{SuggestedFix: fix}
	}
	return CapitalizeResult{SuggestedFix: fix, Reason: "Inconsistent capitalization"}
}

// isUpper reports whether s has letters and none of them are lower case.
func isUpper(s string) bool {
	letters := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters
}
