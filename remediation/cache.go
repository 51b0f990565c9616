package remediation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
)

// CacheKey identifies one scan of one column.
type CacheKey struct {
	WorkbookID string
	Column     string
	Action     models.ActionType
	ListAll    bool
}

func (k CacheKey) String() string {
	return fmt.Sprintf("IssueCache:%s:%s:%s:%t", k.WorkbookID, k.Column, k.Action, k.ListAll)
}

func columnSetKey(workbookId, column string) string {
	return "IssueCache:" + workbookId + ":" + column
}

func workbookSetKey(workbookId string) string {
	return "IssueCache:" + workbookId
}

// IssueCache remembers scan results until the column's data changes.
type IssueCache interface {
	Get(ctx context.Context, key CacheKey) (*ScanResult, bool, error)
	Put(ctx context.Context, key CacheKey, res *ScanResult) error
	InvalidateColumn(ctx context.Context, workbookId, column string) error
	InvalidateWorkbook(ctx context.Context, workbookId string) error
}

type memoryIssueCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]*ScanResult
}

func NewMemoryIssueCache() IssueCache {
	return &memoryIssueCache{entries: make(map[CacheKey]*ScanResult)}
}

func cloneResult(res *ScanResult) *ScanResult {
	cp := *res
	cp.Issues = append([]models.Issue(nil), res.Issues...)
	return &cp
}

func (c *memoryIssueCache) Get(_ context.Context, key CacheKey) (*ScanResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneResult(res), true, nil
}

func (c *memoryIssueCache) Put(_ context.Context, key CacheKey, res *ScanResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cloneResult(res)
	return nil
}

func (c *memoryIssueCache) InvalidateColumn(_ context.Context, workbookId, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.WorkbookID == workbookId && k.Column == column {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memoryIssueCache) InvalidateWorkbook(_ context.Context, workbookId string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.WorkbookID == workbookId {
			delete(c.entries, k)
		}
	}
	return nil
}

// redisIssueCache stores results as JSON with a TTL. Each column keeps a set of its entry keys and
// each workbook a set of its column sets, so invalidation never scans the keyspace.
type redisIssueCache struct {
	ttl time.Duration
}

func NewRedisIssueCache(ttl time.Duration) IssueCache {
	return &redisIssueCache{ttl: ttl}
}

func (c *redisIssueCache) Get(_ context.Context, key CacheKey) (*ScanResult, bool, error) {
	var res *ScanResult
	exists, err := config.GetRedisObject(key.String(), &res)
	if err != nil || !exists || res == nil {
		return nil, false, err
	}
	return res, true, nil
}

func (c *redisIssueCache) Put(_ context.Context, key CacheKey, res *ScanResult) error {
	if err := config.SetRedisObject(key.String(), res, c.ttl); err != nil {
		return err
	}
	colKey := columnSetKey(key.WorkbookID, key.Column)
	if err := config.AddRedisSet(colKey, key.String()); err != nil {
		return err
	}
	return config.AddRedisSet(workbookSetKey(key.WorkbookID), colKey)
}

func (c *redisIssueCache) InvalidateColumn(_ context.Context, workbookId, column string) error {
	colKey := columnSetKey(workbookId, column)
	members, err := config.GetRedisSetMembers(colKey)
	if err != nil {
		return err
	}
	if err := config.RemoveRedisKey(append(members, colKey)...); err != nil {
		return err
	}
	return config.RemoveRedisSetMember(workbookSetKey(workbookId), colKey)
}

func (c *redisIssueCache) InvalidateWorkbook(_ context.Context, workbookId string) error {
	wbKey := workbookSetKey(workbookId)
	columns, err := config.GetRedisSetMembers(wbKey)
	if err != nil {
		return err
	}
	for _, colKey := range columns {
		members, err := config.GetRedisSetMembers(colKey)
		if err != nil {
			return err
		}
		if err := config.RemoveRedisKey(append(members, colKey)...); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey(wbKey)
}
