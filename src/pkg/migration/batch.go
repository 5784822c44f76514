package migration

import (
	"context"
	"fmt"
	"sync"

	lenssentry "github.com/lensapp/storemigrate/src/pkg/sentry"
	"github.com/sirupsen/logrus"
)

// BatchMigrator 批量迁移器，用于在启动时迁移多个存储
// 同一存储的迁移始终在一个 goroutine 中顺序执行，并行只发生在不同存储之间
type BatchMigrator struct {
	configs []*MigrationConfig
	logger  *logrus.Entry
	mu      sync.Mutex
}

// BatchMigrationResult 批量迁移结果
type BatchMigrationResult struct {
	Results map[StoreKind]*MigrationResult
	Success bool
	Errors  []error
}

// NewBatchMigrator 创建批量迁移器
func NewBatchMigrator() *BatchMigrator {
	return &BatchMigrator{
		configs: make([]*MigrationConfig, 0),
		logger:  logrus.WithField("component", "batch_migrator"),
	}
}

// Add 添加迁移配置
func (b *BatchMigrator) Add(config *MigrationConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configs = append(b.configs, config)
}

// Run 执行所有迁移
// parallel 参数指定是否在不同存储之间并行执行
func (b *BatchMigrator) Run(ctx context.Context, parallel bool) *BatchMigrationResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.configs) == 0 {
		return &BatchMigrationResult{
			Results: make(map[StoreKind]*MigrationResult),
			Success: true,
		}
	}

	if parallel {
		return b.runParallel(ctx)
	}
	return b.runSequential(ctx)
}

func (b *BatchMigrator) runSequential(ctx context.Context) *BatchMigrationResult {
	result := &BatchMigrationResult{
		Results: make(map[StoreKind]*MigrationResult),
		Success: true,
	}

	for _, config := range b.configs {
		res, err := b.migrateOne(ctx, config)
		result.record(config, res, err)
	}

	return result
}

func (b *BatchMigrator) runParallel(ctx context.Context) *BatchMigrationResult {
	result := &BatchMigrationResult{
		Results: make(map[StoreKind]*MigrationResult),
		Success: true,
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, config := range b.configs {
		wg.Add(1)
		lenssentry.GoWithContext(ctx, func(ctx context.Context) {
			defer wg.Done()
			res, err := b.migrateOne(ctx, config)
			mu.Lock()
			result.record(config, res, err)
			mu.Unlock()
		})
	}

	wg.Wait()
	return result
}

// migrateOne 迁移单个存储，迁移函数外的 panic 同样转为错误
func (b *BatchMigrator) migrateOne(ctx context.Context, config *MigrationConfig) (res *MigrationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrMigrationFailed, r)
		}
	}()

	res, err = MigrateStore(ctx, config)
	if res != nil && res.Recovered {
		b.logger.WithField("store_kind", res.StoreKind).Info("recovered from incomplete migration")
	}
	return res, err
}

func (r *BatchMigrationResult) record(config *MigrationConfig, res *MigrationResult, err error) {
	kind := StoreKind("")
	if config != nil && config.Schema != nil {
		kind = config.Schema.Kind
	}
	if res != nil {
		r.Results[kind] = res
	}
	if err != nil {
		r.Success = false
		r.Errors = append(r.Errors, fmt.Errorf("migration failed for %s: %w", kind, err))
	}
}
