package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ColumnType string

const (
	ColumnTypeString       ColumnType = "string"
	ColumnTypeNumber       ColumnType = "number"
	ColumnTypeDate         ColumnType = "date"
	ColumnTypeAlphanumeric ColumnType = "alphanumeric"
	ColumnTypeBoolean      ColumnType = "boolean"
)

var AllColumnTypes = []ColumnType{
	ColumnTypeString,
	ColumnTypeNumber,
	ColumnTypeDate,
	ColumnTypeAlphanumeric,
	ColumnTypeBoolean,
}

func (t ColumnType) IsValid() bool {
	for _, c := range AllColumnTypes {
		if c == t {
			return true
		}
	}
	return false
}

// IsText reports whether cosmetic string actions apply to the column.
func (t ColumnType) IsText() bool {
	return t == ColumnTypeString || t == ColumnTypeAlphanumeric
}

func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		names := make([]string, len(AllColumnTypes))
		for i, c := range AllColumnTypes {
			names[i] = string(c)
		}
		return "", fmt.Errorf("invalid column type %q, expected one of %s", s, strings.Join(names, ", "))
	}
	return t, nil
}

func (t *ColumnType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("column type must be string")
	}
	parsed, err := ParseColumnType(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type IssueStatus string

const (
	IssueStatusPending  IssueStatus = "pending"
	IssueStatusKept     IssueStatus = "kept"
	IssueStatusRejected IssueStatus = "rejected"
	IssueStatusChanged  IssueStatus = "changed"
)

type ActionType string

const (
	ActionTypeDuplicates          ActionType = "duplicates"
	ActionTypeEmpty               ActionType = "empty"
	ActionTypeFormatValidation    ActionType = "data-format-validation"
	ActionTypeWhitespace          ActionType = "whitespace"
	ActionTypeCapitalization      ActionType = "capitalization"
	ActionTypeSpecialChars        ActionType = "special-chars"
	ActionTypeCityNormalization   ActionType = "city-normalization"
	ActionTypeCurrency            ActionType = "currency"
	ActionTypeCommas              ActionType = "commas"
	ActionTypeReferenceValidation ActionType = "reference-validation"
	ActionTypeAIValidation        ActionType = "ai-validation"
)

var AllActionTypes = []ActionType{
	ActionTypeDuplicates,
	ActionTypeEmpty,
	ActionTypeFormatValidation,
	ActionTypeWhitespace,
	ActionTypeCapitalization,
	ActionTypeSpecialChars,
	ActionTypeCityNormalization,
	ActionTypeCurrency,
	ActionTypeCommas,
	ActionTypeReferenceValidation,
	ActionTypeAIValidation,
}

func (t ActionType) IsValid() bool {
	for _, a := range AllActionTypes {
		if a == t {
			return true
		}
	}
	return false
}

// DecisionKind is the user's verdict on one issue.
type DecisionKind string

const (
	DecisionKindApply  DecisionKind = "apply"
	DecisionKindEdit   DecisionKind = "edit"
	DecisionKindKeep   DecisionKind = "keep"
	DecisionKindReject DecisionKind = "reject"
	DecisionKindDelete DecisionKind = "delete"
	DecisionKindReset  DecisionKind = "reset"
)

func (k DecisionKind) IsValid() bool {
	switch k {
	case DecisionKindApply, DecisionKindEdit, DecisionKindKeep, DecisionKindReject, DecisionKindDelete, DecisionKindReset:
		return true
	}
	return false
}

// Status maps a decision to the resulting issue status.
func (k DecisionKind) Status() IssueStatus {
	switch k {
	case DecisionKindApply, DecisionKindEdit, DecisionKindDelete:
		return IssueStatusChanged
	case DecisionKindKeep:
		return IssueStatusKept
	case DecisionKindReject:
		return IssueStatusRejected
	}
	return IssueStatusPending
}
