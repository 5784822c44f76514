// Package stores 组装所有存储类型及其迁移
package stores

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lensapp/storemigrate/src/consts"
	"github.com/lensapp/storemigrate/src/pkg/document"
	"github.com/lensapp/storemigrate/src/pkg/localstorage"
	"github.com/lensapp/storemigrate/src/pkg/metadata"
	"github.com/lensapp/storemigrate/src/pkg/migration"
	"github.com/lensapp/storemigrate/src/stores/clusters"
	"github.com/lensapp/storemigrate/src/stores/hotbars"
	"github.com/lensapp/storemigrate/src/stores/weblinks"
)

// Deps 组装迁移所需的外部依赖
type Deps struct {
	// AppDataPath 用户数据目录
	AppDataPath string
	// LocalStorage 集群附属存储，为 nil 时使用 AppDataPath/lens-local-storage
	LocalStorage clusters.Relocator
	// HotbarID 热键栏 ID 生成器，为 nil 时随机生成
	HotbarID hotbars.IDGenerator
	// OnRelocationConflict 附属存储冲突回调
	OnRelocationConflict func(kind migration.StoreKind, r clusters.Relocation)
}

// NewSchemaRegistry 构建所有存储类型的迁移注册表
// 版本号格式错误和重复声明在这里一次性返回，此时还没有加载任何存储
func NewSchemaRegistry(deps Deps) (*migration.SchemaRegistry, error) {
	relocator := deps.LocalStorage
	if relocator == nil {
		relocator = localstorage.NewFileStore(filepath.Join(deps.AppDataPath, clusters.LocalStorageDir))
	}

	var clusterOpts []clusters.Option
	if deps.OnRelocationConflict != nil {
		clusterOpts = append(clusterOpts, clusters.WithConflictHook(func(r clusters.Relocation) {
			deps.OnRelocationConflict(clusters.StoreKind, r)
		}))
	}

	clusterReg, clusterErr := migration.NewRegistryBuilder(clusters.StoreKind).
		Declare(clusters.NewStableIDMigration(relocator, clusterOpts...)).
		Build()
	hotbarReg, hotbarErr := migration.NewRegistryBuilder(hotbars.StoreKind).
		Declare(hotbars.NewDefaultHotbarMigration(deps.HotbarID)).
		Build()
	weblinkReg, weblinkErr := migration.NewRegistryBuilder(weblinks.StoreKind).
		Declare(weblinks.NewDefaultLinksMigration()).
		Build()
	if err := errors.Join(clusterErr, hotbarErr, weblinkErr); err != nil {
		return nil, err
	}

	schemas := []*migration.StoreSchema{
		{
			Kind:        clusters.StoreKind,
			FileName:    clusters.FileName,
			Category:    migration.CategoryCritical,
			Registry:    clusterReg,
			Description: "cluster list",
		},
		{
			Kind:        hotbars.StoreKind,
			FileName:    hotbars.FileName,
			Category:    migration.CategoryCritical,
			Registry:    hotbarReg,
			Description: "hotbar list",
		},
		{
			Kind:        weblinks.StoreKind,
			FileName:    weblinks.FileName,
			Category:    migration.CategoryNormal,
			Registry:    weblinkReg,
			Description: "weblink list",
		},
	}

	reg := migration.NewSchemaRegistry()
	for _, s := range schemas {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// OpenStore 打开某个存储类型的文档
func OpenStore(appDataPath string, schema *migration.StoreSchema) (*document.Document, error) {
	doc, err := document.Open(filepath.Join(appDataPath, schema.FileName))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", schema.Kind, err)
	}
	logrus.WithFields(logrus.Fields{
		"store":  schema.Kind,
		"path":   doc.Path(),
		"fields": doc.Keys(),
	}).Debug("store loaded")
	return doc, nil
}

// HistoryObserver 把每一步迁移写入元数据库
type HistoryObserver struct {
	store  *metadata.Store
	logger *logrus.Entry
}

// NewHistoryObserver 创建迁移历史观察者
func NewHistoryObserver(store *metadata.Store) *HistoryObserver {
	return &HistoryObserver{
		store:  store,
		logger: logrus.WithField("component", "migration_history"),
	}
}

// StepApplied 实现 migration.Observer
func (o *HistoryObserver) StepApplied(kind migration.StoreKind, v migration.Version, took time.Duration) {
	o.record(metadata.HistoryEntry{
		StoreKind: string(kind),
		Version:   v.String(),
		Status:    metadata.StatusApplied,
		Duration:  took,
	})
}

// StepFailed 实现 migration.Observer
func (o *HistoryObserver) StepFailed(kind migration.StoreKind, v migration.Version, err error) {
	o.record(metadata.HistoryEntry{
		StoreKind: string(kind),
		Version:   v.String(),
		Status:    metadata.StatusFailed,
		Error:     err.Error(),
	})
}

// 历史只用于排查问题，写入失败不影响迁移
func (o *HistoryObserver) record(entry metadata.HistoryEntry) {
	entry.AppVersion = consts.AppVersion
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.RecordStep(ctx, entry); err != nil {
		o.logger.WithError(err).Warn("failed to record migration history")
	}
}
