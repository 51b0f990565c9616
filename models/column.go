package models

// ManualCheckRequired marks a value no deterministic rule could repair.
const ManualCheckRequired = "MANUAL_CHECK_REQUIRED"

// MaxIssuesPerScan caps every scanner's output.
const MaxIssuesPerScan = 100

type ColumnProfile struct {
	Name              string     `json:"name"`
	InferredType      ColumnType `json:"inferredType"`
	TotalRecords      int        `json:"totalRecords"`
	EmptyRecords      int        `json:"emptyRecords"`
	DuplicateRecords  int        `json:"duplicateRecords"`
	UniqueValueCount  int        `json:"uniqueValueCount"`
	IsUniqueQualifier bool       `json:"isUniqueQualifier"`
	IsReferenceData   bool       `json:"isReferenceData"`
}

// ColumnConfig is what the user sets for one column in the configuration phase.
type ColumnConfig struct {
	Name              string     `json:"name" binding:"required"`
	Type              ColumnType `json:"type" binding:"required"`
	Subtype           string     `json:"subtype"`
	IsUniqueQualifier bool       `json:"isUniqueQualifier"`
	IsReferenceData   bool       `json:"isReferenceData"`
	ReferenceTable    string     `json:"referenceTable" binding:"required_if=IsReferenceData true"`
}

// ColumnStats is the planner's view of a column.
type ColumnStats struct {
	TotalRecords      int    `json:"totalRecords"`
	EmptyCount        int    `json:"emptyCount"`
	DuplicateCount    int    `json:"duplicateCount"`
	IsUniqueQualifier bool   `json:"isUniqueQualifier"`
	IsReferenceData   bool   `json:"isReferenceData"`
	Subtype           string `json:"subtype,omitempty"`
}

type Action struct {
	Type         ActionType `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Severity     Severity   `json:"severity"`
	IssueCount   *int       `json:"issueCount"`
	Subtype      string     `json:"subtype,omitempty"`
	AutoDetected bool       `json:"autoDetected,omitempty"`
}

type Issue struct {
	RowNumber    int         `json:"rowNumber"`
	CurrentValue string      `json:"currentValue"`
	SuggestedFix string      `json:"suggestedFix"`
	Reason       string      `json:"reason"`
	Severity     Severity    `json:"severity"`
	Status       IssueStatus `json:"status"`
}

// RowNumber converts a zero-based data index to its spreadsheet row.
func RowNumber(index int) int {
	return index + 2
}

// RowIndex is the inverse of RowNumber.
func RowIndex(rowNumber int) int {
	return rowNumber - 2
}
