package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbols are stripped by the currency action and number normalization.
const CurrencySymbols = "$€£¥₹₩₽₱฿₫₦₴₺¢"

var reCurrencyCode = regexp.MustCompile(`(?i)\b(usd|eur|gbp|jpy|inr|aud|cad|sgd|mmk|ks)\b`)

// HasCurrencySymbol reports whether s carries a currency sign.
func HasCurrencySymbol(s string) bool {
	return strings.ContainsAny(s, CurrencySymbols)
}

// StripCurrency removes currency signs and trims what is left.
func StripCurrency(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(CurrencySymbols, r) {
			return -1
		}
		return r
	}, s))
}

// ParseNumber parses a plain decimal. The second result is true when the value only parsed after
// stripping user formatting such as "$1,200.50", "USD 20,000" or "45 %".
func ParseNumber(value string) (decimal.Decimal, bool, error) {
	s := strings.TrimSpace(value)
	if d, err := decimal.NewFromString(s); err == nil {
		return d, false, nil
	}
	clean := normalizeNumberText(s)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func normalizeNumberText(s string) string {
	s = reCurrencyCode.ReplaceAllString(s, "")
	s = StripCurrency(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")
	// accounting negatives: (1200.00)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	return s
}

// formatNumber renders d with exactly places decimals, or as-is for places < 0.
func formatNumber(d decimal.Decimal, places int) string {
	if places < 0 {
		return d.String()
	}
	return d.StringFixed(int32(places))
}
