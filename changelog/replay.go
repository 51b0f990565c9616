package changelog

import (
	"sort"

	"github.com/mmdatafocus/cmdb_cleanser/workbook"
)

// ReplayStats summarises what an export replay did.
type ReplayStats struct {
	EditsApplied   int      `json:"editsApplied"`
	RowsDeleted    int      `json:"rowsDeleted"`
	RowsExported   int      `json:"rowsExported"`
	UnknownColumns []string `json:"unknownColumns,omitempty"`
}

func cellValue(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Replay returns a cleaned copy of t: every edit token is applied, marked rows are removed and the
// reserved columns are stripped. t itself is not modified.
func Replay(t *workbook.Table) (*workbook.Table, ReplayStats, error) {
	out := t.Clone()
	var stats ReplayStats
	logCol := out.ColumnIndex(workbook.ChangesLogColumn)
	deleteCol := out.ColumnIndex(workbook.RowDeleteColumn)
	unknown := make(map[string]bool)

	var doomed []int
	for i := range out.Rows {
		log := workbook.Text(out.Cell(i, logCol))
		reason := workbook.Text(out.Cell(i, deleteCol))
		for _, e := range Parse(log) {
			_, newValue, ok := e.Edit()
			if !ok {
				continue
			}
			col := out.ColumnIndex(e.Column)
			if col < 0 || workbook.IsReserved(e.Column) {
				unknown[e.Column] = true
				continue
			}
			if err := out.SetCell(i, col, cellValue(newValue)); err != nil {
				return nil, stats, err
			}
			stats.EditsApplied++
		}
		if IsDeleteMarked(log, reason) {
			doomed = append(doomed, i)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(doomed)))
	for _, i := range doomed {
		out.DeleteRow(i)
	}
	stats.RowsDeleted = len(doomed)

	out.DropColumn(workbook.ChangesLogColumn)
	out.DropColumn(workbook.RowDeleteColumn)
	stats.RowsExported = len(out.Rows)
	for c := range unknown {
		stats.UnknownColumns = append(stats.UnknownColumns, c)
	}
	sort.Strings(stats.UnknownColumns)
	return out, stats, nil
}

// Revert undoes every edit recorded for one row and clears both reserved cells. It returns the
// number of cells restored.
func Revert(t *workbook.Table, rowIndex int) (int, error) {
	logCol := t.ColumnIndex(workbook.ChangesLogColumn)
	deleteCol := t.ColumnIndex(workbook.RowDeleteColumn)
	entries := Parse(workbook.Text(t.Cell(rowIndex, logCol)))
	restored := 0
	for i := len(entries) - 1; i >= 0; i-- {
		oldValue, _, ok := entries[i].Edit()
		if !ok {
			continue
		}
		col := t.ColumnIndex(entries[i].Column)
		if col < 0 {
			continue
		}
		if err := t.SetCell(rowIndex, col, cellValue(oldValue)); err != nil {
			return restored, err
		}
		restored++
	}
	for _, col := range []int{logCol, deleteCol} {
		if col < 0 {
			continue
		}
		if err := t.SetCell(rowIndex, col, nil); err != nil {
			return restored, err
		}
	}
	return restored, nil
}
