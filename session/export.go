package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmdatafocus/cmdb_cleanser/changelog"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type ExportResult struct {
	Path          string                `json:"-"`
	FileName      string                `json:"fileName"`
	Stats         changelog.ReplayStats `json:"stats"`
	ArchiveObject string                `json:"archiveObject,omitempty"`
	MessageID     string                `json:"messageId,omitempty"`
}

// CleanedFileName derives the download name from the uploaded one.
func CleanedFileName(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." {
		base = "workbook"
	}
	return base + "_cleaned.xlsx"
}

// Export replays the change log into a cleaned copy without touching the working file. Archiving and
// the export event are best effort: their failures are logged and the export still succeeds.
func (s *Service) Export(ctx context.Context) (res *ExportResult, err error) {
	ctx, span := startSpan(ctx, "session.Export")
	defer func() { endSpan(span, err) }()

	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	release, err := s.lock.Acquire(ctx, st.id, moduleName, "Export")
	if err != nil {
		return nil, err
	}
	defer release()

	table, err := workbook.Read(st.path)
	if err != nil {
		return nil, err
	}
	cleaned, stats, err := changelog.Replay(table)
	if err != nil {
		return nil, fmt.Errorf("unable to replay change log: %w", err)
	}
	res = &ExportResult{
		Path:     filepath.Join(s.workDir, st.id+"_cleaned.xlsx"),
		FileName: CleanedFileName(st.name),
		Stats:    stats,
	}
	// One encoding serves both the download file and the archive.
	var encoded bytes.Buffer
	if err := workbook.WriteTo(&encoded, cleaned); err != nil {
		return nil, fmt.Errorf("unable to encode export: %w", err)
	}
	if err := os.WriteFile(res.Path, encoded.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("unable to write export: %w", err)
	}
	span.SetAttributes(
		attribute.Int("rows_exported", stats.RowsExported),
		attribute.Int("rows_deleted", stats.RowsDeleted),
		attribute.Int("edits_applied", stats.EditsApplied))

	logger := config.GetLogger()
	if len(stats.UnknownColumns) > 0 {
		logger.WithFields(logrus.Fields{
			"workbook": st.id,
			"columns":  stats.UnknownColumns,
		}).Warn("change log names columns missing from the sheet")
	}

	if s.archiveBucket != "" {
		object := utils.ArchiveObjectName(st.id, res.FileName)
		if err := utils.UploadBytesToGCS(ctx, s.archiveBucket, object, encoded.Bytes(), utils.XLSXContentType); err != nil {
			config.LogError(logger, moduleName, "Export", "archive export", object, err)
		} else {
			res.ArchiveObject = object
		}
	}

	if s.pubsubTopic != "" {
		ev := config.ExportEvent{
			WorkbookID:    st.id,
			FileName:      res.FileName,
			ArchiveObject: res.ArchiveObject,
			RowsExported:  stats.RowsExported,
			RowsDeleted:   stats.RowsDeleted,
			EditsApplied:  stats.EditsApplied,
			ExportedAt:    time.Now().UTC(),
		}
		ev.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
		id, err := config.PublishExportEvent(ctx, s.pubsubProject, s.pubsubTopic, ev)
		if err != nil {
			config.LogError(logger, moduleName, "Export", "publish export event", ev, err)
		} else {
			res.MessageID = id
		}
	}

	logger.WithFields(logrus.Fields{
		"workbook":      st.id,
		"rows_exported": stats.RowsExported,
		"rows_deleted":  stats.RowsDeleted,
		"edits_applied": stats.EditsApplied,
	}).Info("workbook exported")
	return res, nil
}
