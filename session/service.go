// Package session holds the single workbook in flight and runs the wizard's phases against it.
// Every mutation re-reads the working file, changes it in memory and rewrites it whole.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mmdatafocus/cmdb_cleanser/aisuggest"
	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/reference"
	"github.com/mmdatafocus/cmdb_cleanser/remediation"
	"github.com/mmdatafocus/cmdb_cleanser/subtypes"
	"github.com/mmdatafocus/cmdb_cleanser/utils"
	"github.com/mmdatafocus/cmdb_cleanser/validation"
	"github.com/mmdatafocus/cmdb_cleanser/workbook"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "session"

var tracer = otel.Tracer("cmdb-cleanser/session")

// Options wires the service. Nil collaborators fall back to in-memory implementations, except
// Reference and Suggester whose actions then report unavailable.
type Options struct {
	Registry  *subtypes.Registry
	Reference reference.Source
	Suggester aisuggest.Suggester
	Cache     remediation.IssueCache
	Decisions models.DecisionStore
	WorkDir   string

	// Export side effects, skipped when empty.
	ArchiveBucket string
	PubSubProject string
	PubSubTopic   string
}

type Service struct {
	registry  *subtypes.Registry
	planner   *remediation.Planner
	scanner   *remediation.Scanner
	cache     remediation.IssueCache
	decisions models.DecisionStore
	workDir   string

	archiveBucket string
	pubsubProject string
	pubsubTopic   string

	lock utils.WorkbookLock

	mu      sync.RWMutex
	current *state
}

type statusKey struct {
	column string
	action models.ActionType
	row    int
}

type state struct {
	id       string
	path     string
	name     string
	profiles []models.ColumnProfile
	configs  map[string]models.ColumnConfig
	statuses map[statusKey]models.IssueStatus
}

// WorkbookInfo describes the loaded workbook.
type WorkbookInfo struct {
	ID       string                 `json:"id"`
	FileName string                 `json:"fileName"`
	Rows     int                    `json:"rows"`
	Columns  []models.ColumnProfile `json:"columns"`
	Configs  []models.ColumnConfig  `json:"configs,omitempty"`
}

func New(opts Options) (*Service, error) {
	registry := opts.Registry
	if registry == nil {
		registry = subtypes.Default()
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create work dir: %w", err)
	}
	cache := opts.Cache
	if cache == nil {
		cache = remediation.NewMemoryIssueCache()
	}
	decisions := opts.Decisions
	if decisions == nil {
		decisions = models.NewMemoryDecisionStore()
	}
	return &Service{
		registry:      registry,
		planner:       remediation.NewPlanner(registry),
		scanner:       remediation.NewScanner(validation.New(registry), opts.Reference, opts.Suggester),
		cache:         cache,
		decisions:     decisions,
		workDir:       workDir,
		archiveBucket: opts.ArchiveBucket,
		pubsubProject: opts.PubSubProject,
		pubsubTopic:   opts.PubSubTopic,
	}, nil
}

func (s *Service) Registry() *subtypes.Registry {
	return s.registry
}

func (s *Service) snapshot() (*state, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, utils.ErrNoWorkbook
	}
	return s.current, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Load ingests a spreadsheet, stores a working xlsx copy and profiles its columns. Any previous
// workbook is discarded.
func (s *Service) Load(ctx context.Context, path string, fileName string) (info *WorkbookInfo, err error) {
	ctx, span := startSpan(ctx, "session.Load", attribute.String("file", fileName))
	defer func() { endSpan(span, err) }()

	table, err := workbook.Read(path)
	if err != nil {
		return nil, err
	}
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("%w: the sheet has no header row", utils.ErrInvalidInput)
	}
	id := uuid.NewString()
	working := filepath.Join(s.workDir, id+".xlsx")
	if err := workbook.Write(working, table); err != nil {
		return nil, err
	}

	st := &state{
		id:       id,
		path:     working,
		name:     fileName,
		profiles: workbook.Profile(table),
		configs:  make(map[string]models.ColumnConfig),
		statuses: make(map[statusKey]models.IssueStatus),
	}

	s.mu.Lock()
	previous := s.current
	s.current = st
	s.mu.Unlock()

	if previous != nil {
		if err := s.cache.InvalidateWorkbook(ctx, previous.id); err != nil {
			config.LogError(config.GetLogger(), moduleName, "Load", "invalidate previous workbook", previous.id, err)
		}
	}
	config.GetLogger().WithFields(logrus.Fields{
		"workbook": id,
		"file":     fileName,
		"rows":     len(table.Rows),
		"columns":  len(st.profiles),
	}).Info("workbook loaded")
	return s.info(st, len(table.Rows)), nil
}

func (s *Service) info(st *state, rows int) *WorkbookInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := &WorkbookInfo{
		ID:       st.id,
		FileName: st.name,
		Rows:     rows,
		Columns:  append([]models.ColumnProfile(nil), st.profiles...),
	}
	for _, cfg := range st.configs {
		info.Configs = append(info.Configs, cfg)
	}
	sort.Slice(info.Configs, func(i, j int) bool { return info.Configs[i].Name < info.Configs[j].Name })
	return info
}

// Workbook returns the loaded workbook's profiles and configuration.
func (s *Service) Workbook(ctx context.Context) (*WorkbookInfo, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	table, err := workbook.Read(st.path)
	if err != nil {
		return nil, err
	}
	return s.info(st, len(table.Rows)), nil
}

// Configure records the per-column semantics chosen in the configuration phase. The whole batch is
// rejected if any entry is invalid.
func (s *Service) Configure(ctx context.Context, configs []models.ColumnConfig) (*WorkbookInfo, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(st.profiles))
	for _, p := range st.profiles {
		known[p.Name] = true
	}
	for _, cfg := range configs {
		if !known[cfg.Name] {
			return nil, fmt.Errorf("%w: %q", utils.ErrColumnNotFound, cfg.Name)
		}
		if !cfg.Type.IsValid() {
			return nil, fmt.Errorf("%w: column %q has invalid type %q", utils.ErrInvalidInput, cfg.Name, cfg.Type)
		}
		if cfg.Subtype != "" && !s.registry.Compatible(cfg.Subtype, cfg.Type) {
			return nil, fmt.Errorf("%w: subtype %q does not apply to %s columns", utils.ErrInvalidInput, cfg.Subtype, cfg.Type)
		}
		if cfg.IsReferenceData && cfg.ReferenceTable == "" {
			return nil, fmt.Errorf("%w: column %q is reference data but has no reference table", utils.ErrInvalidInput, cfg.Name)
		}
	}

	s.mu.Lock()
	for _, cfg := range configs {
		st.configs[cfg.Name] = cfg
		for i := range st.profiles {
			if st.profiles[i].Name == cfg.Name {
				st.profiles[i].IsUniqueQualifier = cfg.IsUniqueQualifier
				st.profiles[i].IsReferenceData = cfg.IsReferenceData
			}
		}
	}
	s.mu.Unlock()

	if err := s.cache.InvalidateWorkbook(ctx, st.id); err != nil {
		config.LogError(config.GetLogger(), moduleName, "Configure", "invalidate cache", st.id, err)
	}
	config.GetLogger().WithFields(logrus.Fields{"workbook": st.id, "columns": len(configs)}).Info("columns configured")
	return s.Workbook(ctx)
}

// column resolves the effective configuration of a column, falling back to its profile.
func (s *Service) column(st *state, name string) (models.ColumnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := st.configs[name]; ok {
		return cfg, nil
	}
	for _, p := range st.profiles {
		if p.Name == name {
			return models.ColumnConfig{
				Name:              p.Name,
				Type:              p.InferredType,
				IsUniqueQualifier: p.IsUniqueQualifier,
				IsReferenceData:   p.IsReferenceData,
			}, nil
		}
	}
	return models.ColumnConfig{}, fmt.Errorf("%w: %q", utils.ErrColumnNotFound, name)
}

// Actions plans the remediation actions of one column from its current data.
func (s *Service) Actions(ctx context.Context, columnName string) (actions []models.Action, err error) {
	ctx, span := startSpan(ctx, "session.Actions", attribute.String("column", columnName))
	defer func() { endSpan(span, err) }()

	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	cfg, err := s.column(st, columnName)
	if err != nil {
		return nil, err
	}
	table, err := workbook.Read(st.path)
	if err != nil {
		return nil, err
	}
	values, err := table.Column(columnName)
	if err != nil {
		return nil, err
	}
	profile := workbook.ProfileColumn(columnName, values)
	actions = s.planner.PlanActions(columnName, cfg.Type, models.ColumnStats{
		TotalRecords:      profile.TotalRecords,
		EmptyCount:        profile.EmptyRecords,
		DuplicateCount:    profile.DuplicateRecords,
		IsUniqueQualifier: cfg.IsUniqueQualifier,
		IsReferenceData:   cfg.IsReferenceData,
		Subtype:           cfg.Subtype,
	})
	// Counts the planner defers become known once the action was scanned.
	for i := range actions {
		if actions[i].IssueCount != nil {
			continue
		}
		key := remediation.CacheKey{WorkbookID: st.id, Column: columnName, Action: actions[i].Type}
		if res, ok, _ := s.cache.Get(ctx, key); ok {
			n := len(res.Issues)
			actions[i].IssueCount = &n
		}
	}
	return actions, nil
}

// Scan finds the issues of one action on one column. Results are cached until the column changes;
// degraded results are not cached so the next call retries the collaborator.
func (s *Service) Scan(ctx context.Context, columnName string, action models.ActionType, listAll bool) (res *remediation.ScanResult, err error) {
	ctx, span := startSpan(ctx, "session.Scan",
		attribute.String("column", columnName),
		attribute.String("action", string(action)),
		attribute.Bool("list_all", listAll))
	defer func() { endSpan(span, err) }()

	if !action.IsValid() {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnsupportedAction, action)
	}
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	cfg, err := s.column(st, columnName)
	if err != nil {
		return nil, err
	}

	key := remediation.CacheKey{WorkbookID: st.id, Column: columnName, Action: action, ListAll: listAll}
	res, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		config.LogError(config.GetLogger(), moduleName, "Scan", "read issue cache", key.String(), err)
	}
	if !hit {
		table, err := workbook.Read(st.path)
		if err != nil {
			return nil, err
		}
		values, err := table.Column(columnName)
		if err != nil {
			return nil, err
		}
		res, err = s.scanner.Scan(ctx, remediation.ScanRequest{
			Action:            action,
			Column:            columnName,
			ColumnType:        cfg.Type,
			Subtype:           s.planner.EffectiveSubtype(columnName, cfg.Type, cfg.Subtype),
			Values:            values,
			IsUniqueQualifier: cfg.IsUniqueQualifier,
			ReferenceTable:    cfg.ReferenceTable,
			ListAll:           listAll,
		})
		if err != nil {
			return nil, err
		}
		if res.Unavailable == "" {
			if err := s.cache.Put(ctx, key, res); err != nil {
				config.LogError(config.GetLogger(), moduleName, "Scan", "write issue cache", key.String(), err)
			}
		}
	}
	span.SetAttributes(attribute.Int("issues", len(res.Issues)), attribute.Bool("cache_hit", hit))

	s.mu.RLock()
	for i := range res.Issues {
		if status, ok := st.statuses[statusKey{columnName, action, res.Issues[i].RowNumber}]; ok {
			res.Issues[i].Status = status
		}
	}
	s.mu.RUnlock()
	return res, nil
}

// Decisions lists the audit trail of the loaded workbook.
func (s *Service) Decisions(ctx context.Context) ([]*models.Decision, error) {
	st, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.decisions.List(ctx, st.id)
}

func (s *Service) audit(ctx context.Context, d *models.Decision) {
	if err := s.decisions.Append(ctx, d); err != nil {
		config.LogError(config.GetLogger(), moduleName, "audit", "append decision", d, err)
	}
}
