package session

import (
	"path/filepath"

	"github.com/mmdatafocus/cmdb_cleanser/aisuggest"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/reference"
	"github.com/mmdatafocus/cmdb_cleanser/remediation"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
)

// OptionsFromSettings connects the optional backends named in settings. A backend that cannot be
// reached is logged and replaced by its in-process fallback. The returned func closes connections.
func OptionsFromSettings(s config.Settings) (Options, func()) {
	logger := config.GetLogger()
	opts := Options{
		Registry:      subtypes.Default().WithPhoneRegion(s.DefaultPhoneRegion),
		WorkDir:       filepath.Join(s.UploadDir, "work"),
		ArchiveBucket: s.GCSBucket,
		PubSubProject: s.PubSubProjectID,
		PubSubTopic:   s.PubSubExportTopic,
	}
	var closers []func()

	if s.ReferenceBaseURL != "" {
		client, err := reference.NewClient(s.ReferenceBaseURL, s.ReferenceUser, s.ReferencePassword, s.ReferenceTimeout)
		if err != nil {
			config.LogError(logger, moduleName, "OptionsFromSettings", "reference client", s.ReferenceBaseURL, err)
		} else {
			opts.Reference = client
		}
	}

	suggester, err := aisuggest.New(aisuggest.Config{
		Provider: s.AIProvider,
		APIKey:   s.AIAPIKey,
		Model:    s.AIModel,
		Timeout:  s.AITimeout,
	})
	if err != nil {
		config.LogError(logger, moduleName, "OptionsFromSettings", "ai suggester", s.AIProvider, err)
	} else {
		opts.Suggester = suggester
	}

	if err := config.ConnectRedisWithRetry(s.RedisAddress); err != nil {
		config.LogError(logger, moduleName, "OptionsFromSettings", "redis", s.RedisAddress, err)
	} else if rdb := config.GetRedisDB(); rdb != nil {
		opts.Cache = remediation.NewRedisIssueCache(s.IssueCacheTTL)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	if s.DatabaseConfigured() {
		db, err := config.ConnectDatabaseWithRetry(s)
		if err == nil && s.DBAutoMigrate {
			err = models.MigrateTable(db)
		}
		if err != nil {
			config.LogError(logger, moduleName, "OptionsFromSettings", "decision audit database", s.DBHost, err)
		} else {
			opts.Decisions = models.NewGormDecisionStore(db)
			if sqlDB, err := db.DB(); err == nil {
				closers = append(closers, func() { _ = sqlDB.Close() })
			}
		}
	}

	return opts, func() {
		for _, c := range closers {
			c()
		}
	}
}
