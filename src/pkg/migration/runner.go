package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// StepHook 每一步迁移结束后的回调，err 为 nil 表示成功
type StepHook func(v Version, took time.Duration, err error)

// Apply 对快照执行所有版本高于 recorded 的迁移
//
// 迁移按版本升序逐个执行，每一步成功后立即通过 recorder 记录该版本，
// 因此中途失败或进程崩溃后，已记录版本恰好等于最后一个成功的步骤。
// 返回最终记录的版本。
func Apply(ctx context.Context, snapshot Snapshot, recorded Version, reg *Registry, recorder Recorder) (Version, error) {
	return apply(ctx, snapshot, recorded, reg, recorder, nil)
}

func apply(ctx context.Context, snapshot Snapshot, recorded Version, reg *Registry, recorder Recorder, hook StepHook) (Version, error) {
	if reg == nil {
		return recorded, fmt.Errorf("migration registry cannot be nil")
	}
	if snapshot == nil || recorder == nil {
		return recorded, fmt.Errorf("store %s: snapshot and recorder cannot be nil", reg.Kind())
	}

	logger := logrus.WithFields(logrus.Fields{
		"component":  "migration",
		"store_kind": reg.Kind(),
	})

	current := recorded
	for _, d := range reg.Pending(recorded) {
		stepLogger := logger.WithFields(logrus.Fields{
			"from_version": current.String(),
			"version":      d.Version.String(),
		})
		if d.Description != "" {
			stepLogger = stepLogger.WithField("description", d.Description)
		}
		stepLogger.Debug("running migration")

		start := time.Now()
		err := runStep(d, snapshot)
		if err == nil {
			err = recorder.RecordVersion(ctx, d.Version)
			if err != nil {
				err = fmt.Errorf("failed to record version: %w", err)
			}
		}
		took := time.Since(start)

		if hook != nil {
			hook(d.Version, took, err)
		}
		if err != nil {
			stepLogger.WithError(err).Error("migration failed")
			return current, &MigrationError{StoreKind: reg.Kind(), Version: d.Version, Err: err}
		}

		current = d.Version
		stepLogger.WithField("took", took).Info("migration applied")
	}

	return current, nil
}

// runStep 执行单个迁移，迁移函数中的 panic 也视为失败
func runStep(d Declaration, snapshot Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Run(snapshot)
}
