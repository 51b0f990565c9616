package config

import (
	"context"
	"os"
	"strings"

	"github.com/mmdatafocus/cmdb_cleanser/appctx"
	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logLevel(os.Getenv("LOG_LEVEL")))
	logg.SetOutput(os.Stdout)
}

// WithContext tags entries with the request's correlation id when there is one.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logg)
	if cid, ok := appctx.GetString(ctx, appctx.ContextKeyCorrelationId); ok {
		entry = entry.WithField("correlation_id", cid)
	}
	return entry
}

// logLevel parses LOG_LEVEL, falling back to info.
func logLevel(raw string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if data != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
			"data":     data,
		}).Error(err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
		}).Error(err.Error())
	}
}
