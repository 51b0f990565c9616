package remediation

import (
	"sort"
	"strings"
	"unicode"
)

const cityFuzzyThreshold = 2

// cityGazetteer maps a case- and space-folded key to the canonical city name.
var cityGazetteer = map[string]string{
	"newyork":      "New York",
	"nyc":          "New York",
	"newyorkcity":  "New York",
	"losangeles":   "Los Angeles",
	"sanfrancisco": "San Francisco",
	"sanjose":      "San Jose",
	"chicago":      "Chicago",
	"seattle":      "Seattle",
	"boston":       "Boston",
	"dallas":       "Dallas",
	"austin":       "Austin",
	"denver":       "Denver",
	"atlanta":      "Atlanta",
	"washington":   "Washington",
	"toronto":      "Toronto",
	"london":       "London",
	"paris":        "Paris",
	"berlin":       "Berlin",
	"frankfurt":    "Frankfurt",
	"amsterdam":    "Amsterdam",
	"dublin":       "Dublin",
	"madrid":       "Madrid",
	"tokyo":        "Tokyo",
	"singapore":    "Singapore",
	"hongkong":     "Hong Kong",
	"sydney":       "Sydney",
	"melbourne":    "Melbourne",
	"mumbai":       "Mumbai",
	"bombay":       "Mumbai",
	"bangalore":    "Bengaluru",
	"bengaluru":    "Bengaluru",
	"yangon":       "Yangon",
	"rangoon":      "Yangon",
	"mandalay":     "Mandalay",
	"bangkok":      "Bangkok",
}

// cityKeys are the gazetteer keys eligible for fuzzy matching, sorted for stable results. Keys of
// three letters or fewer are exact-match only.
var cityKeys = func() []string {
	var keys []string
	for k := range cityGazetteer {
		if len(k) > 3 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}()

func cityKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// NormalizeCity returns the canonical spelling for raw, if the gazetteer knows it.
func NormalizeCity(raw string) (string, bool) {
	key := cityKey(raw)
	if key == "" {
		return "", false
	}
	if canonical, ok := cityGazetteer[key]; ok {
		return canonical, true
	}
	best, bestDist := "", cityFuzzyThreshold+1
	for _, k := range cityKeys {
		if !IsSimilar(key, k, cityFuzzyThreshold) {
			continue
		}
		if d := distance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best == "" {
		return "", false
	}
	return cityGazetteer[best], true
}

var cityColumnHints = []string{"city", "town", "location", "municipality", "place"}

// LooksLikeCityColumn reports whether a column name suggests place names.
func LooksLikeCityColumn(columnName string) bool {
	name := strings.ToLower(columnName)
	for _, hint := range cityColumnHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}
