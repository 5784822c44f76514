// Package clusters 集群存储的数据模型与迁移
package clusters

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lensapp/storemigrate/src/pkg/migration"
)

const (
	// StoreKind 集群存储类型
	StoreKind migration.StoreKind = "cluster-store"
	// FileName 集群存储文件名
	FileName = "lens-cluster-store.json"
	// LocalStorageDir 按集群 ID 保存终端历史等数据的目录名
	LocalStorageDir = "lens-local-storage"

	// FieldClusters 集群列表字段
	FieldClusters = "clusters"

	// StableIDVersion 集群 ID 改为由 kubeconfig 路径和 context 派生的版本
	StableIDVersion = "5.0.0-beta.13"
)

// View 集群存储快照的字段访问
type View struct {
	snapshot migration.Snapshot
}

// NewView 创建字段访问
func NewView(s migration.Snapshot) View {
	return View{snapshot: s}
}

// Clusters 读取集群列表，字段不存在时返回空列表
func (v View) Clusters() ([]Model, error) {
	var clusters []Model
	if _, err := v.snapshot.Get(FieldClusters, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// SetClusters 写入集群列表
func (v View) SetClusters(clusters []Model) error {
	if clusters == nil {
		clusters = []Model{}
	}
	return v.snapshot.Set(FieldClusters, clusters)
}

// Option 迁移选项
type Option func(*stableIDMigration)

// WithConflictHook 每次附属存储冲突时回调
func WithConflictHook(f func(Relocation)) Option {
	return func(m *stableIDMigration) {
		m.onConflict = f
	}
}

type stableIDMigration struct {
	relocator  Relocator
	onConflict func(Relocation)
	logger     *logrus.Entry
}

// NewStableIDMigration 返回把随机集群 ID 改为派生 ID 的迁移
// 重复执行是安全的：派生 ID 不变，文件已在新位置时不会再移动
func NewStableIDMigration(relocator Relocator, opts ...Option) migration.Declaration {
	m := &stableIDMigration{
		relocator: relocator,
		logger: logrus.WithFields(logrus.Fields{
			"store_kind": StoreKind,
			"version":    StableIDVersion,
		}),
	}
	for _, opt := range opts {
		opt(m)
	}

	return migration.Declaration{
		Version:     migration.MustParseVersion(StableIDVersion),
		Description: "derive cluster ids from kubeconfig path and context name",
		Run:         m.run,
	}
}

func (m *stableIDMigration) run(s migration.Snapshot) error {
	view := NewView(s)

	legacy, err := view.Clusters()
	if err != nil {
		return err
	}

	res := Reconcile(legacy)
	for _, req := range res.Relocations {
		entry := m.logger.WithFields(logrus.Fields{"old_id": req.OldID, "new_id": req.NewID})
		if req.Duplicate {
			entry.Info("duplicate entries for cluster")
		} else {
			entry.Debug("first entry for cluster")
		}
	}

	// 先处理文件，失败时快照保持原样
	report, err := ApplyRelocations(m.relocator, res.Relocations, m.logger, m.onConflict)
	if err != nil {
		return err
	}

	if err := view.SetClusters(res.Clusters); err != nil {
		return fmt.Errorf("write clusters: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"legacy":    len(legacy),
		"clusters":  len(res.Clusters),
		"relocated": report.Relocated,
		"conflicts": report.Conflicts,
	}).Info("cluster ids reconciled")
	return nil
}
