// Package localstorage 管理按实体 ID 命名的附属存储文件
// 每个实体一个文件：<dir>/<id>.json
package localstorage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRelocationConflict 重命名的目标文件已存在
var ErrRelocationConflict = errors.New("relocation destination already exists")

// FileStore 附属存储目录
type FileStore struct {
	dir string
}

// NewFileStore 创建附属存储
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path 返回 key 对应的文件路径
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Exists 文件是否存在
func (s *FileStore) Exists(key string) bool {
	_, err := os.Lstat(s.Path(key))
	return err == nil
}

// Relocate 把 oldKey 的文件重命名为 newKey
// 源文件不存在时什么都不做；目标已存在时返回 ErrRelocationConflict，不覆盖目标
func (s *FileStore) Relocate(oldKey, newKey string) error {
	if err := validateKey(oldKey); err != nil {
		return err
	}
	if err := validateKey(newKey); err != nil {
		return err
	}
	if oldKey == newKey {
		return nil
	}

	oldPath, newPath := s.Path(oldKey), s.Path(newKey)

	if _, err := os.Lstat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", oldPath, err)
	}

	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("%w: %s -> %s", ErrRelocationConflict, oldPath, newPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", newPath, err)
	}

	// 检查与重命名之间目标可能被创建，renameNoReplace 在支持的平台上不会覆盖目标
	if err := renameNoReplace(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s -> %s", ErrRelocationConflict, oldPath, newPath)
		}
		return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Delete 删除 key 对应的文件，文件不存在时不报错
func (s *FileStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", s.Path(key), err)
	}
	return nil
}

// validateKey key 必须是单个文件名
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
