package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/cmdb_cleanser/changelog"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const defaultDeleteReason = "Deleted during cleansing"

// DecisionInput is a user's verdict on one issue, or a manual edit when Action is empty.
type DecisionInput struct {
	Column    string              `json:"column" binding:"required"`
	RowNumber int                 `json:"rowNumber" binding:"required,min=2"`
	Action    models.ActionType   `json:"action"`
	Kind      models.DecisionKind `json:"kind" binding:"required"`
	Value     string              `json:"value"`
	Reason    string              `json:"reason"`
}

type DecisionResult struct {
	RowNumber int                `json:"rowNumber"`
	Column    string             `json:"column"`
	Status    models.IssueStatus `json:"status"`
	OldValue  string             `json:"oldValue"`
	NewValue  string             `json:"newValue"`
	ChangeLog string             `json:"changeLog"`
}

// Decide applies one verdict: apply and edit write the value and log Old→New, keep logs KEEP,
// delete logs DELETE_ROW and fills _ROW_DELETE, reject only changes the issue status.
func (s *Service) Decide(ctx context.Context, in DecisionInput) (res *DecisionResult, err error) {
	ctx, span := startSpan(ctx, "session.Decide",
		attribute.String("column", in.Column),
		attribute.Int("row", in.RowNumber),
		attribute.String("kind", string(in.Kind)))
	defer func() { endSpan(span, err) }()

	if !in.Kind.IsValid() || in.Kind == models.DecisionKindReset {
		return nil, fmt.Errorf("%w: unknown decision %q", utils.ErrInvalidInput, in.Kind)
	}
	if in.Action != "" && !in.Action.IsValid() {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnsupportedAction, in.Action)
	}
	if workbook.IsReserved(in.Column) {
		return nil, fmt.Errorf("%w: %q is managed by the cleanser", utils.ErrInvalidInput, in.Column)
	}
	if (in.Kind == models.DecisionKindApply || in.Kind == models.DecisionKindEdit) && in.Value == models.ManualCheckRequired {
		return nil, fmt.Errorf("%w: no automatic fix is available, edit the value instead", utils.ErrInvalidInput)
	}

	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	release, err := s.lock.Acquire(ctx, st.id, moduleName, "Decide")
	if err != nil {
		return nil, err
	}
	defer release()

	table, err := workbook.Read(st.path)
	if err != nil {
		return nil, err
	}
	col := table.ColumnIndex(in.Column)
	if col < 0 {
		return nil, fmt.Errorf("%w: %q", utils.ErrColumnNotFound, in.Column)
	}
	index := models.RowIndex(in.RowNumber)
	if index < 0 || index >= len(table.Rows) {
		return nil, fmt.Errorf("%w: row %d", utils.ErrRowOutOfRange, in.RowNumber)
	}

	oldValue := workbook.Text(table.Cell(index, col))
	res = &DecisionResult{
		RowNumber: in.RowNumber,
		Column:    in.Column,
		Status:    in.Kind.Status(),
		OldValue:  oldValue,
		NewValue:  oldValue,
	}

	if in.Kind != models.DecisionKindReject {
		logCol := table.EnsureColumn(workbook.ChangesLogColumn)
		log := workbook.Text(table.Cell(index, logCol))
		switch in.Kind {
		case models.DecisionKindApply, models.DecisionKindEdit:
			if in.Value != oldValue {
				if err := table.SetCell(index, col, in.Value); err != nil {
					return nil, err
				}
				log = changelog.Append(log, in.Column, changelog.EditAction(oldValue, in.Value))
				res.NewValue = in.Value
			}
		case models.DecisionKindKeep:
			log = changelog.Append(log, in.Column, changelog.ActionKeep)
		case models.DecisionKindDelete:
			// DELETE_ROW replaces the column's token, so an earlier edit is undone first.
			if original, edited := changelog.OriginalValue(log, in.Column); edited {
				if err := table.SetCell(index, col, nilIfEmpty(original)); err != nil {
					return nil, err
				}
				res.NewValue = original
			}
			log = changelog.Append(log, in.Column, changelog.ActionDeleteRow)
			reason := strings.TrimSpace(in.Reason)
			if reason == "" {
				reason = defaultDeleteReason
			}
			deleteCol := table.EnsureColumn(workbook.RowDeleteColumn)
			if err := table.SetCell(index, deleteCol, reason); err != nil {
				return nil, err
			}
		}
		if err := table.SetCell(index, logCol, nilIfEmpty(log)); err != nil {
			return nil, err
		}
		if err := workbook.Write(st.path, table); err != nil {
			return nil, fmt.Errorf("unable to save decision: %w", err)
		}
		res.ChangeLog = log
		if err := s.cache.InvalidateColumn(ctx, st.id, in.Column); err != nil {
			config.LogError(config.GetLogger(), moduleName, "Decide", "invalidate column cache", in.Column, err)
		}
	}

	if in.Action != "" {
		s.mu.Lock()
		st.statuses[statusKey{in.Column, in.Action, in.RowNumber}] = res.Status
		s.mu.Unlock()
	}
	s.audit(ctx, &models.Decision{
		WorkbookID: st.id,
		RowNumber:  in.RowNumber,
		ColumnName: in.Column,
		ActionType: in.Action,
		Kind:       in.Kind,
		OldValue:   res.OldValue,
		NewValue:   res.NewValue,
		Reason:     in.Reason,
	})
	config.GetLogger().WithFields(logrus.Fields{
		"workbook": st.id,
		"column":   in.Column,
		"row":      in.RowNumber,
		"kind":     in.Kind,
		"action":   in.Action,
	}).Info("decision recorded")
	return res, nil
}

// UpdateCell is a manual edit outside any action.
func (s *Service) UpdateCell(ctx context.Context, column string, rowNumber int, value string) (*DecisionResult, error) {
	return s.Decide(ctx, DecisionInput{
		Column:    column,
		RowNumber: rowNumber,
		Kind:      models.DecisionKindEdit,
		Value:     value,
	})
}

// ResetRow undoes every recorded edit of a row and clears its deletion marks. All cached scans are
// dropped because any column of the row may have changed.
func (s *Service) ResetRow(ctx context.Context, rowNumber int) (restored int, err error) {
	ctx, span := startSpan(ctx, "session.ResetRow", attribute.Int("row", rowNumber))
	defer func() { endSpan(span, err) }()

	st, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	release, err := s.lock.Acquire(ctx, st.id, moduleName, "ResetRow")
	if err != nil {
		return 0, err
	}
	defer release()

	table, err := workbook.Read(st.path)
	if err != nil {
		return 0, err
	}
	index := models.RowIndex(rowNumber)
	if index < 0 || index >= len(table.Rows) {
		return 0, fmt.Errorf("%w: row %d", utils.ErrRowOutOfRange, rowNumber)
	}
	restored, err = changelog.Revert(table, index)
	if err != nil {
		return 0, err
	}
	if err := workbook.Write(st.path, table); err != nil {
		return 0, fmt.Errorf("unable to save reset: %w", err)
	}

	s.mu.Lock()
	for k := range st.statuses {
		if k.row == rowNumber {
			delete(st.statuses, k)
		}
	}
	s.mu.Unlock()
	if err := s.cache.InvalidateWorkbook(ctx, st.id); err != nil {
		config.LogError(config.GetLogger(), moduleName, "ResetRow", "invalidate cache", st.id, err)
	}
	s.audit(ctx, &models.Decision{
		WorkbookID: st.id,
		RowNumber:  rowNumber,
		Kind:       models.DecisionKindReset,
	})
	config.GetLogger().WithFields(logrus.Fields{
		"workbook": st.id,
		"row":      rowNumber,
		"restored": restored,
	}).Info("row reset")
	return restored, nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
