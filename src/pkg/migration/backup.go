package migration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// BackupSuffix 备份文件后缀格式
	BackupSuffix = ".backup_%s"
	// MaxBackupCount 最大保留备份数量
	MaxBackupCount = 5
)

// BackupManager 存储文件备份管理器
// 备份只作为迁移前的安全副本保留，不参与自动回滚
type BackupManager struct {
	storePath string
	now       func() time.Time
}

// NewBackupManager 创建备份管理器
func NewBackupManager(storePath string) *BackupManager {
	return &BackupManager{
		storePath: storePath,
		now:       time.Now,
	}
}

// CreateBackup 创建存储文件备份，文件不存在时返回空路径
func (m *BackupManager) CreateBackup() (string, error) {
	if _, err := os.Stat(m.storePath); os.IsNotExist(err) {
		return "", nil
	}

	timestamp := m.now().Format("20060102_150405")
	backupPath := m.storePath + fmt.Sprintf(BackupSuffix, timestamp)

	if err := copyFile(m.storePath, backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	// 清理失败不影响迁移
	_ = m.CleanupOldBackups()

	return backupPath, nil
}

// RemoveBackup 删除备份文件
func (m *BackupManager) RemoveBackup(backupPath string) error {
	if backupPath == "" {
		return nil
	}
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	return nil
}

// ListBackups 列出所有备份文件，最新的在前
func (m *BackupManager) ListBackups() ([]string, error) {
	dir := filepath.Dir(m.storePath)
	prefix := filepath.Base(m.storePath) + ".backup_"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	// 时间戳定长，按字符串倒序即按时间倒序
	sort.Slice(backups, func(i, j int) bool {
		return backups[i] > backups[j]
	})

	return backups, nil
}

// CleanupOldBackups 清理旧备份，保留最近的MaxBackupCount个
func (m *BackupManager) CleanupOldBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackupCount {
		return nil
	}

	for _, backup := range backups[MaxBackupCount:] {
		if err := m.RemoveBackup(backup); err != nil {
			return fmt.Errorf("%s: %w", backup, err)
		}
	}
	return nil
}

// GetLatestBackup 获取最新的备份文件
func (m *BackupManager) GetLatestBackup() (string, error) {
	backups, err := m.ListBackups()
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", nil
	}
	return backups[0], nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		os.Remove(dst)
		return err
	}

	return dstFile.Sync()
}
