package remediation

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// IsSimilar reports whether a and b are within threshold single-character edits of each other.
func IsSimilar(a, b string, threshold int) bool {
	diff := utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > threshold {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= threshold
}

// distance is IsSimilar's measure, exposed for ranking candidates.
func distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}
