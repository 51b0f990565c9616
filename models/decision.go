package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Decision is one append-only audit row for a user verdict.
type Decision struct {
	ID         int          `gorm:"primary_key" json:"id"`
	WorkbookID string       `gorm:"size:36;index;not null" json:"workbookId"`
	RowNumber  int          `gorm:"not null" json:"rowNumber"`
	ColumnName string       `gorm:"size:255" json:"columnName"`
	ActionType ActionType   `gorm:"size:50" json:"actionType"`
	Kind       DecisionKind `gorm:"size:20;not null" json:"kind"`
	OldValue   string       `gorm:"type:text" json:"oldValue"`
	NewValue   string       `gorm:"type:text" json:"newValue"`
	Reason     string       `gorm:"type:text" json:"reason"`
	CreatedAt  time.Time    `gorm:"autoCreateTime" json:"createdAt"`
}

type DecisionStore interface {
	Append(ctx context.Context, d *Decision) error
	List(ctx context.Context, workbookId string) ([]*Decision, error)
}

type gormDecisionStore struct {
	db *gorm.DB
}

func NewGormDecisionStore(db *gorm.DB) DecisionStore {
	return &gormDecisionStore{db: db}
}

func (s *gormDecisionStore) Append(ctx context.Context, d *Decision) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *gormDecisionStore) List(ctx context.Context, workbookId string) ([]*Decision, error) {
	var results []*Decision
	err := s.db.WithContext(ctx).
		Where("workbook_id = ?", workbookId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type memoryDecisionStore struct {
	mu     sync.Mutex
	nextId int
	rows   []*Decision
}

func NewMemoryDecisionStore() DecisionStore {
	return &memoryDecisionStore{}
}

func (s *memoryDecisionStore) Append(_ context.Context, d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	d.ID = s.nextId
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := *d
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *memoryDecisionStore) List(_ context.Context, workbookId string) ([]*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*Decision
	for _, d := range s.rows {
		if d.WorkbookID == workbookId {
			cp := *d
			results = append(results, &cp)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(&Decision{})
}
