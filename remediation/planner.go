package remediation

import (
	"fmt"

	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
)

// Severity thresholds, as a share of total records.
const (
	duplicateWarningPct = 10.0
	emptyCriticalPct    = 20.0
	emptyWarningPct     = 5.0
)

type Planner struct {
	registry *subtypes.Registry
}

func NewPlanner(registry *subtypes.Registry) *Planner {
	return &Planner{registry: registry}
}

func percentOf(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func count(n int) *int {
	return &n
}

// PlanActions lists the remediation actions for a column in their fixed order. Stats.Subtype is the
// user's choice; when it is empty the detector's guess is used and the format action says so.
func (p *Planner) PlanActions(columnName string, columnType models.ColumnType, stats models.ColumnStats) []models.Action {
	var actions []models.Action

	if stats.DuplicateCount > 0 {
		pct := percentOf(stats.DuplicateCount, stats.TotalRecords)
		severity := models.SeverityInfo
		switch {
		case stats.IsUniqueQualifier:
			severity = models.SeverityCritical
		case pct > duplicateWarningPct:
			severity = models.SeverityWarning
		}
		description := fmt.Sprintf("%d duplicate values (%.1f%% of records)", stats.DuplicateCount, pct)
		if stats.IsUniqueQualifier {
			description += "; this column is a unique qualifier and must not repeat"
		}
		actions = append(actions, models.Action{
			Type:        models.ActionTypeDuplicates,
			Title:       "Resolve Duplicates",
			Description: description,
			Severity:    severity,
			IssueCount:  count(stats.DuplicateCount),
		})
	}

	if stats.EmptyCount > 0 {
		pct := percentOf(stats.EmptyCount, stats.TotalRecords)
		severity := models.SeverityInfo
		switch {
		case pct > emptyCriticalPct:
			severity = models.SeverityCritical
		case pct > emptyWarningPct:
			severity = models.SeverityWarning
		}
		actions = append(actions, models.Action{
			Type:        models.ActionTypeEmpty,
			Title:       "Fill Empty Values",
			Description: fmt.Sprintf("%d empty values (%.1f%% of records)", stats.EmptyCount, pct),
			Severity:    severity,
			IssueCount:  count(stats.EmptyCount),
		})
	}

	actions = append(actions, p.formatAction(columnName, columnType, stats.Subtype))

	switch {
	case columnType.IsText():
		actions = append(actions,
			models.Action{
				Type:        models.ActionTypeWhitespace,
				Title:       "Trim Whitespace",
				Description: "Remove leading, trailing and repeated spaces",
				Severity:    models.SeverityInfo,
			},
			models.Action{
				Type:        models.ActionTypeCapitalization,
				Title:       "Standardize Capitalization",
				Description: "Apply consistent title case, leaving codes and acronyms alone",
				Severity:    models.SeverityInfo,
			},
			models.Action{
				Type:        models.ActionTypeSpecialChars,
				Title:       "Remove Special Characters",
				Description: "Strip characters other than letters, digits, spaces, _ . -",
				Severity:    models.SeverityInfo,
			},
		)
		if LooksLikeCityColumn(columnName) {
			actions = append(actions, models.Action{
				Type:        models.ActionTypeCityNormalization,
				Title:       "Normalize City Names",
				Description: "Match city names against a gazetteer and fix spelling variants",
				Severity:    models.SeverityInfo,
			})
		}
	case columnType == models.ColumnTypeNumber:
		actions = append(actions,
			models.Action{
				Type:        models.ActionTypeCurrency,
				Title:       "Strip Currency Symbols",
				Description: "Remove currency symbols so values are plain numbers",
				Severity:    models.SeverityInfo,
			},
			models.Action{
				Type:        models.ActionTypeCommas,
				Title:       "Strip Thousands Separators",
				Description: "Remove commas from numeric values",
				Severity:    models.SeverityInfo,
			},
		)
	}

	if stats.IsReferenceData {
		actions = append(actions, models.Action{
			Type:        models.ActionTypeReferenceValidation,
			Title:       "Validate Against Reference Data",
			Description: "Check every value against the system of record",
			Severity:    models.SeverityWarning,
		})
	}

	actions = append(actions, models.Action{
		Type:        models.ActionTypeAIValidation,
		Title:       "AI-Assisted Analysis",
		Description: "Ask the AI assistant to look for problems the rules miss",
		Severity:    models.SeverityInfo,
	})
	return actions
}

func (p *Planner) formatAction(columnName string, columnType models.ColumnType, chosen string) models.Action {
	action := models.Action{
		Type:     models.ActionTypeFormatValidation,
		Title:    "Validate Data Format",
		Severity: models.SeverityWarning,
	}
	subtype := chosen
	if subtype == "" || !p.registry.Compatible(subtype, columnType) {
		subtype = p.registry.Detect(columnName, columnType)
		action.AutoDetected = subtype != ""
	}
	rule, ok := p.registry.Lookup(subtype)
	if !ok {
		action.Description = fmt.Sprintf("Check every value is a valid %s", columnType)
		return action
	}
	action.Subtype = rule.ID
	action.Description = "Check every value against " + rule.Describe()
	if action.AutoDetected {
		action.Description += " (auto-detected from the column name)"
	}
	return action
}

// EffectiveSubtype resolves the subtype the format action validates against.
func (p *Planner) EffectiveSubtype(columnName string, columnType models.ColumnType, chosen string) string {
	return p.formatAction(columnName, columnType, chosen).Subtype
}
