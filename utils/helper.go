package utils

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmdatafocus/cmdb_cleanser/config"
)

// GenerateUniqueFilename keeps the extension of the uploaded name and replaces the rest with a uuid.
func GenerateUniqueFilename(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errorResponse["request"] = err.Error()
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

const workbookLockTTL = 30 * time.Second

// WorkbookLock serialises the read-mutate-rewrite cycle of a workbook file. The process mutex is always
// held; when Redis is connected a redislock on the workbook id is taken as well.
type WorkbookLock struct {
	mu sync.Mutex
}

func (l *WorkbookLock) Acquire(ctx context.Context, workbookId string, moduleName string, functionName string) (func(), error) {
	l.mu.Lock()
	locker := config.GetRedisLock()
	if locker == nil {
		return l.mu.Unlock, nil
	}
	logger := config.GetLogger()
	lockKey := fmt.Sprintf("WorkbookLock:%s", workbookId)
	lock, err := locker.Obtain(ctx, lockKey, workbookLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err == redislock.ErrNotObtained {
		l.mu.Unlock()
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for workbook", workbookId, err)
		return nil, errors.New("workbook is busy, try again")
	} else if err != nil {
		l.mu.Unlock()
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for workbook", workbookId, err)
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
		l.mu.Unlock()
	}, nil
}
