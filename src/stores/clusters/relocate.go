//go:generate go run go.uber.org/mock/mockgen -source=relocate.go -destination=mock_relocator_test.go -package=clusters
package clusters

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lensapp/storemigrate/src/pkg/localstorage"
)

// Relocator 附属存储文件操作
type Relocator interface {
	// Relocate 把 oldKey 的文件改名为 newKey，目标已存在时返回 localstorage.ErrRelocationConflict
	Relocate(oldKey, newKey string) error
	// Delete 删除 key 的文件
	Delete(key string) error
}

// RelocationReport 重命名统计
type RelocationReport struct {
	Relocated int
	Conflicts int
}

// ApplyRelocations 依次执行重命名请求
// 目标已被更早的记录占用时删除源文件并记录警告，其他错误直接返回
func ApplyRelocations(r Relocator, requests []Relocation, logger *logrus.Entry, onConflict func(Relocation)) (RelocationReport, error) {
	var report RelocationReport

	for _, req := range requests {
		if req.OldID == "" || req.OldID == req.NewID {
			continue
		}

		err := r.Relocate(req.OldID, req.NewID)
		switch {
		case err == nil:
			report.Relocated++
		case errors.Is(err, localstorage.ErrRelocationConflict):
			logger.WithFields(logrus.Fields{
				"old_id": req.OldID,
				"new_id": req.NewID,
			}).Warnf("multiple local storage files for new id, removing %s.json", req.OldID)
			if err := r.Delete(req.OldID); err != nil {
				return report, fmt.Errorf("remove conflicting local storage for %s: %w", req.OldID, err)
			}
			report.Conflicts++
			if onConflict != nil {
				onConflict(req)
			}
		default:
			return report, fmt.Errorf("relocate local storage %s -> %s: %w", req.OldID, req.NewID, err)
		}
	}

	return report, nil
}
