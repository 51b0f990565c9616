package subtypes

import (
	"strings"
	"unicode"

	"github.com/mmdatafocus/cmdb_cleanser/models"
)

// keyword maps a column-name fragment to a subtype. Whole-word keywords only match a complete
// name token, which keeps short fragments like "ip" from firing inside "description".
type keyword struct {
	fragment  string
	wholeWord bool
	subtype   string
}

// defaultKeywords is priority ordered; the first match within the column's family wins.
var defaultKeywords = []keyword{
	// string family
	{fragment: "description", subtype: "long-text"},
	{fragment: "comment", subtype: "long-text"},
	{fragment: "notes", subtype: "long-text"},
	{fragment: "macaddress", subtype: "mac-address"},
	{fragment: "mac", wholeWord: true, subtype: "mac-address"},
	{fragment: "ipv6", subtype: "ip-address-v6"},
	{fragment: "ipv4", subtype: "ip-address-v4"},
	{fragment: "ipaddress", subtype: "ip-address-v4"},
	{fragment: "ip", wholeWord: true, subtype: "ip-address-v4"},
	{fragment: "fqdn", subtype: "fqdn"},
	{fragment: "domain", subtype: "fqdn"},
	{fragment: "hostname", subtype: "hostname"},
	{fragment: "host", subtype: "hostname"},
	{fragment: "email", subtype: "email"},
	{fragment: "mail", wholeWord: true, subtype: "email"},
	{fragment: "url", subtype: "url"},
	{fragment: "website", subtype: "url"},
	{fragment: "link", wholeWord: true, subtype: "url"},
	{fragment: "phone", subtype: "phone-number"},
	{fragment: "mobile", subtype: "phone-number"},
	{fragment: "fax", wholeWord: true, subtype: "phone-number"},
	{fragment: "uuid", subtype: "uuid"},
	{fragment: "guid", subtype: "uuid"},
	{fragment: "sysid", subtype: "sys-id"},
	{fragment: "serial", subtype: "serial-number"},
	{fragment: "assettag", subtype: "asset-tag"},
	{fragment: "model", subtype: "model-number"},
	{fragment: "version", subtype: "version"},
	{fragment: "firmware", subtype: "version"},
	{fragment: "code", wholeWord: true, subtype: "short-text"},
	{fragment: "name", subtype: "name-text"},

	// number family
	{fragment: "percent", subtype: "percentage"},
	{fragment: "pct", wholeWord: true, subtype: "percentage"},
	{fragment: "utilization", subtype: "percentage"},
	{fragment: "currency", subtype: "currency"},
	{fragment: "price", subtype: "currency"},
	{fragment: "cost", subtype: "currency"},
	{fragment: "amount", subtype: "currency"},
	{fragment: "salary", subtype: "currency"},
	{fragment: "memory", subtype: "memory-mb"},
	{fragment: "ram", wholeWord: true, subtype: "memory-mb"},
	{fragment: "disk", subtype: "disk-gb"},
	{fragment: "storage", subtype: "disk-gb"},
	{fragment: "cpu", subtype: "cpu-count"},
	{fragment: "cores", subtype: "cpu-count"},
	{fragment: "processor", subtype: "cpu-count"},
	{fragment: "port", wholeWord: true, subtype: "port-number"},
	{fragment: "year", wholeWord: true, subtype: "year"},
	{fragment: "count", subtype: "integer"},
	{fragment: "quantity", subtype: "integer"},
	{fragment: "qty", wholeWord: true, subtype: "integer"},

	// date family
	{fragment: "datetime", subtype: "datetime"},
	{fragment: "timestamp", subtype: "datetime"},
	{fragment: "iso", wholeWord: true, subtype: "iso8601"},
	{fragment: "date", subtype: "date-only"},
	{fragment: "time", wholeWord: true, subtype: "time-only"},

	// boolean family
	{fragment: "active", subtype: "boolean-active-inactive"},
	{fragment: "yesno", subtype: "boolean-yes-no"},
	{fragment: "yn", wholeWord: true, subtype: "boolean-y-n"},
	{fragment: "enabled", subtype: "boolean-true-false"},
	{fragment: "flag", subtype: "boolean-true-false"},
	{fragment: "is", wholeWord: true, subtype: "boolean-true-false"},
}

// Detect guesses the best-fit subtype from the column name, scoped to the family of columnType.
// It returns "" when nothing matches.
func (r *Registry) Detect(columnName string, columnType models.ColumnType) string {
	family := FamilyOf(columnType)
	tokens := nameTokens(columnName)
	compact := strings.Join(tokens, "")
	if compact == "" {
		return ""
	}
	for _, kw := range r.keywords {
		rule, ok := r.byID[kw.subtype]
		if !ok || rule.Family != family {
			continue
		}
		if kw.wholeWord {
			for _, tok := range tokens {
				if tok == kw.fragment {
					return kw.subtype
				}
			}
			continue
		}
		if strings.Contains(compact, kw.fragment) {
			return kw.subtype
		}
	}
	return ""
}

// nameTokens lower-cases a column name and splits it on separators and camelCase boundaries.
func nameTokens(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && i > 0 && len(cur) > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
