package validation

import (
	"strings"

	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
)

// GenerateFix proposes a corrected value for the subtype's fix strategy. It never panics: anything
// it cannot repair deterministically, including a candidate identical to the input, comes back as
// models.ManualCheckRequired. format-mac alone returns an irreparable value unchanged.
func (v *Validator) GenerateFix(value string, subtypeId string, columnType models.ColumnType) (fix string) {
	defer func() {
		if recover() != nil {
			fix = models.ManualCheckRequired
		}
	}()

	rule, ok := v.registry.Lookup(subtypeId)
	if !ok {
		return models.ManualCheckRequired
	}
	var out string
	switch rule.Fix {
	case subtypes.FixClean:
		out = keepRunes(value, func(r rune) bool {
			return isASCIIAlnum(r) || r == '-' || r == '_'
		})
	case subtypes.FixCleanHostname:
		out = cleanLabel(strings.ToLower(value))
		if len(out) > 63 {
			out = strings.TrimRight(out[:63], "-")
		}
	case subtypes.FixCleanFQDN:
		out = cleanFQDN(value)
	case subtypes.FixCleanPhone:
		out = keepRunes(value, func(r rune) bool {
			return (r >= '0' && r <= '9') || strings.ContainsRune("+-() ", r)
		})
		out = strings.Join(strings.Fields(out), " ")
	case subtypes.FixFormatMAC:
		return formatMAC(value)
	case subtypes.FixAddProtocol:
		out = strings.TrimSpace(value)
		if out != "" && !strings.Contains(out, "://") {
			out = "https://" + out
		}
	case subtypes.FixTruncate:
		out = value
		if rule.String != nil && rule.String.MaxLength > 0 {
			runes := []rune(value)
			if len(runes) > rule.String.MaxLength {
				out = strings.TrimSpace(string(runes[:rule.String.MaxLength]))
			}
		}
	case subtypes.FixReformat:
		out = reformat(value, rule)
	default:
		return models.ManualCheckRequired
	}
	// A fix that changes nothing is no fix.
	if strings.TrimSpace(out) == "" || out == value {
		return models.ManualCheckRequired
	}
	return out
}

func keepRunes(s string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// cleanLabel keeps DNS label characters and trims hyphens from both ends.
func cleanLabel(s string) string {
	out := keepRunes(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
	})
	return strings.Trim(out, "-")
}

func cleanFQDN(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	var labels []string
	for _, part := range strings.Split(lower, ".") {
		label := cleanLabel(part)
		if len(label) > 63 {
			label = strings.TrimRight(label[:63], "-")
		}
		if label != "" {
			labels = append(labels, label)
		}
	}
	out := strings.Join(labels, ".")
	if len(out) > 253 {
		out = strings.TrimRight(out[:253], ".-")
	}
	return out
}

// formatMAC re-inserts colons when exactly twelve hex digits survive; otherwise the value is
// returned unchanged because it cannot be repaired.
func formatMAC(value string) string {
	hex := keepRunes(value, func(r rune) bool {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	})
	if len(hex) != 12 {
		return value
	}
	hex = strings.ToUpper(hex)
	pairs := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		pairs = append(pairs, hex[i:i+2])
	}
	return strings.Join(pairs, ":")
}

func reformat(value string, rule *subtypes.Rule) string {
	switch rule.Family {
	case subtypes.FamilyNumber:
		n := rule.Number
		d, _, err := ParseNumber(value)
		if err != nil {
			return models.ManualCheckRequired
		}
		places := n.DecimalPlaces
		if n.IntegerOnly {
			places = 0
		}
		if places >= 0 {
			d = d.Round(int32(places))
		}
		if (n.Min.Valid && d.LessThan(n.Min.Decimal)) || (n.Max.Valid && d.GreaterThan(n.Max.Decimal)) {
			return models.ManualCheckRequired
		}
		return formatNumber(d, places)
	case subtypes.FamilyDate:
		if t, _, ok := ParseDate(value, append([]string{rule.Date.Layout}, alternateLayouts(rule)...)); ok {
			return t.Format(rule.Date.Layout)
		}
		return models.ManualCheckRequired
	case subtypes.FamilyBoolean:
		b := rule.Boolean
		s := strings.TrimSpace(value)
		if strings.EqualFold(s, b.True) {
			return b.True
		}
		if strings.EqualFold(s, b.False) {
			return b.False
		}
		truth, ok := BooleanValue(s)
		if !ok {
			return models.ManualCheckRequired
		}
		if truth {
			return b.True
		}
		return b.False
	}
	return models.ManualCheckRequired
}
