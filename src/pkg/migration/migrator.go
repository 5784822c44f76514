package migration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// Migrator 单个存储的迁移器
type Migrator struct {
	config        *MigrationConfig
	lockManager   *LockManager
	backupManager *BackupManager
	logger        *logrus.Entry
}

// NewMigrator 创建迁移器
func NewMigrator(config *MigrationConfig) (*Migrator, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}
	if config.Schema.Registry == nil {
		return nil, fmt.Errorf("schema %s registry cannot be nil", config.Schema.Kind)
	}
	if config.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	m := &Migrator{
		config: config,
		logger: logrus.WithFields(logrus.Fields{
			"store_kind": config.Schema.Kind,
			"store_path": config.Store.Path(),
		}),
	}
	// 纯内存存储没有文件，不需要锁与备份
	if path := config.Store.Path(); path != "" {
		m.lockManager = NewLockManager(path)
		m.backupManager = NewBackupManager(path)
	}
	return m, nil
}

// shouldBackup 判断是否需要备份
func (m *Migrator) shouldBackup() bool {
	if m.backupManager == nil {
		return false
	}
	if m.config.ForceBackup != nil {
		return *m.config.ForceBackup
	}
	return m.config.Schema.Category == CategoryCritical
}

// Run 执行迁移
func (m *Migrator) Run(ctx context.Context) (*MigrationResult, error) {
	kind := m.config.Schema.Kind
	reg := m.config.Schema.Registry
	store := m.config.Store

	result := &MigrationResult{
		StoreKind:   kind,
		FromVersion: store.RecordedVersion(),
		ToVersion:   store.RecordedVersion(),
	}

	if m.lockManager != nil && m.lockManager.IsLocked() {
		lockInfo, err := m.lockManager.GetLockInfo()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read lock info: %v", ErrLocked, err)
		}
		return nil, fmt.Errorf("%w: started at %s (PID: %d)",
			ErrLocked, lockInfo.StartTime, lockInfo.PID)
	}

	pending := reg.Pending(result.FromVersion)
	if len(pending) == 0 {
		result.Success = true
		m.logger.WithField("version", result.FromVersion.String()).Debug("store is up to date")
		return result, nil
	}
	target := pending[len(pending)-1].Version

	var backupPath string
	if m.shouldBackup() {
		var err error
		backupPath, err = m.backupManager.CreateBackup()
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", kind, err)
		}
		result.BackupPath = backupPath
	}

	if m.lockManager != nil {
		lockInfo := CreateLockInfo(store.Path(), backupPath, result.FromVersion, target, kind)
		if err := m.lockManager.Acquire(lockInfo); err != nil {
			return nil, fmt.Errorf("store %s: failed to acquire lock: %w", kind, err)
		}
		defer func() {
			if err := m.lockManager.Release(); err != nil {
				m.logger.WithError(err).Warn("failed to release migration lock")
			}
		}()
	}

	final, err := apply(ctx, store, result.FromVersion, reg, store, func(v Version, took time.Duration, stepErr error) {
		for _, o := range m.config.Observers {
			if stepErr != nil {
				o.StepFailed(kind, v, stepErr)
			} else {
				o.StepApplied(kind, v, took)
			}
		}
		if stepErr == nil {
			result.Applied = append(result.Applied, v)
		}
	})
	result.ToVersion = final
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Success = true
	m.logger.WithFields(logrus.Fields{
		"from_version": result.FromVersion.String(),
		"to_version":   result.ToVersion.String(),
		"applied":      len(result.Applied),
		"backup_path":  backupPath,
	}).Info("store migration completed")

	return result, nil
}

// CheckAndRecover 检查上次未完成的迁移
// 锁的持有进程仍在运行时不做处理
// 已记录版本在每一步之后都会更新，因此只需清除残留的锁文件，下次运行会从记录的版本继续
func (m *Migrator) CheckAndRecover() (bool, error) {
	if m.lockManager == nil || !m.lockManager.IsLocked() {
		return false, nil
	}

	lockInfo, err := m.lockManager.GetLockInfo()
	if errors.Is(err, ErrCorruptLock) {
		// 写锁时崩溃留下的空文件或残缺文件，持有者无从判断，按残留处理
		m.logger.WithError(err).WithField("lock_path", m.lockManager.GetLockPath()).
			Warn("discarding unreadable migration lock, resuming from recorded version")
		if err := m.lockManager.Release(); err != nil {
			return true, err
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock info: %w", err)
	}

	if ownerAlive(lockInfo.PID) {
		// 另一个进程正在迁移，保留锁，Run 会返回 ErrLocked
		return false, nil
	}

	m.logger.WithFields(logrus.Fields{
		"start_time":       lockInfo.StartTime,
		"pid":              lockInfo.PID,
		"from_version":     lockInfo.FromVersion.String(),
		"target_version":   lockInfo.TargetVersion.String(),
		"recorded_version": m.config.Store.RecordedVersion().String(),
		"backup_path":      lockInfo.BackupPath,
	}).Warn("detected incomplete migration, resuming from recorded version")

	if err := m.lockManager.Release(); err != nil {
		return true, err
	}
	return true, nil
}

// ownerAlive 判断持有锁的进程是否还在运行
// 本进程写下的锁只可能是上一轮残留，按已失效处理
func ownerAlive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}

// MigrateStore 便捷函数：迁移单个存储
func MigrateStore(ctx context.Context, config *MigrationConfig) (*MigrationResult, error) {
	migrator, err := NewMigrator(config)
	if err != nil {
		return nil, err
	}

	if recovered, err := migrator.CheckAndRecover(); err != nil {
		migrator.logger.WithError(err).Warn("recovery check failed")
	} else if recovered {
		res, err := migrator.Run(ctx)
		if res != nil {
			res.Recovered = true
		}
		return res, err
	}

	return migrator.Run(ctx)
}
