//go:build !linux

package localstorage

import "os"

func renameNoReplace(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
