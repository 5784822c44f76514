//go:build linux

package localstorage

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// renameNoReplace 目标已存在时返回 os.ErrExist
// 文件系统不支持 RENAME_NOREPLACE 时退回普通重命名
func renameNoReplace(oldPath, newPath string) error {
	err := unix.Renameat2(unix.AT_FDCWD, oldPath, unix.AT_FDCWD, newPath, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EEXIST):
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: os.ErrExist}
	case errors.Is(err, unix.ENOSYS), errors.Is(err, unix.EINVAL):
		return os.Rename(oldPath, newPath)
	}
	return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: err}
}
