package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// LockFileExtension 锁文件扩展名
	LockFileExtension = ".migration.lock"
)

// LockManager 锁管理器
// 锁文件在迁移期间存在，进程崩溃后残留的锁文件用于识别未完成的迁移
type LockManager struct {
	storePath string
	lockPath  string
}

// NewLockManager 创建锁管理器
func NewLockManager(storePath string) *LockManager {
	return &LockManager{
		storePath: storePath,
		lockPath:  storePath + LockFileExtension,
	}
}

// GetLockPath 获取锁文件路径
func (m *LockManager) GetLockPath() string {
	return m.lockPath
}

// Acquire 获取锁
func (m *LockManager) Acquire(info *LockInfo) error {
	// 检查是否存在锁文件
	if m.IsLocked() {
		existingInfo, err := m.GetLockInfo()
		if err != nil {
			return fmt.Errorf("lock file exists but cannot be read: %w", err)
		}
		return fmt.Errorf("%w: started at %s (PID: %d)",
			ErrLocked, existingInfo.StartTime, existingInfo.PID)
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock file directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}
	if err := writeFileAtomic(m.lockPath, data); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// writeFileAtomic 写临时文件并 fsync 后重命名，崩溃时不会留下写了一半的锁文件
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Release 释放锁
func (m *LockManager) Release() error {
	if !m.IsLocked() {
		return nil
	}
	if err := os.Remove(m.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// IsLocked 检查是否被锁定
func (m *LockManager) IsLocked() bool {
	_, err := os.Stat(m.lockPath)
	return err == nil
}

// GetLockInfo 获取锁信息
func (m *LockManager) GetLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(m.lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLock, err)
	}

	return &info, nil
}

// CreateLockInfo 创建锁信息
func CreateLockInfo(storePath, backupPath string, fromVersion, targetVersion Version, kind StoreKind) *LockInfo {
	return &LockInfo{
		StorePath:     storePath,
		BackupPath:    backupPath,
		StartTime:     time.Now().Format(time.RFC3339),
		FromVersion:   fromVersion,
		TargetVersion: targetVersion,
		PID:           os.Getpid(),
		StoreKind:     kind,
	}
}
