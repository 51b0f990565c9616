package workbook

import (
	"strings"
	"unicode"

	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
	"github.com/mmdatafocus/cmdb_cleanser/validation"
)

// majorityShare is the fraction of non-empty cells that must agree before a type is inferred.
const majorityShare = 0.8

// Profile computes the ingestion statistics of every non-reserved column.
func Profile(t *Table) []models.ColumnProfile {
	profiles := make([]models.ColumnProfile, 0, len(t.Headers))
	for _, h := range t.DataHeaders() {
		values, _ := t.Column(h)
		profiles = append(profiles, ProfileColumn(h, values))
	}
	return profiles
}

func ProfileColumn(name string, values []any) models.ColumnProfile {
	p := models.ColumnProfile{Name: name, TotalRecords: len(values)}
	seen := make(map[string]bool)
	for _, v := range values {
		if IsEmpty(v) {
			p.EmptyRecords++
			continue
		}
		s := Text(v)
		if s == "null" || s == "undefined" {
			continue
		}
		if seen[s] {
			p.DuplicateRecords++
			continue
		}
		seen[s] = true
	}
	p.UniqueValueCount = len(seen)
	p.InferredType = InferType(values)
	return p
}

// InferType picks the type shared by at least 80% of the non-empty cells, defaulting to string.
func InferType(values []any) models.ColumnType {
	counts := make(map[models.ColumnType]int)
	total := 0
	for _, v := range values {
		if IsEmpty(v) {
			continue
		}
		total++
		counts[classify(v)]++
	}
	if total == 0 {
		return models.ColumnTypeString
	}
	for _, t := range []models.ColumnType{models.ColumnTypeBoolean, models.ColumnTypeNumber, models.ColumnTypeDate, models.ColumnTypeAlphanumeric} {
		if float64(counts[t]) >= majorityShare*float64(total) {
			return t
		}
	}
	return models.ColumnTypeString
}

func classify(v any) models.ColumnType {
	switch x := v.(type) {
	case bool:
		return models.ColumnTypeBoolean
	case float64, int:
		return models.ColumnTypeNumber
	case string:
		s := strings.TrimSpace(x)
		if _, _, err := validation.ParseNumber(s); err == nil {
			return models.ColumnTypeNumber
		}
		if _, _, ok := validation.ParseDate(s, subtypes.DateLayouts); ok {
			return models.ColumnTypeDate
		}
		if _, ok := validation.BooleanValue(s); ok {
			return models.ColumnTypeBoolean
		}
		if hasLetterAndDigit(s) {
			return models.ColumnTypeAlphanumeric
		}
	}
	return models.ColumnTypeString
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
