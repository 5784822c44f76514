package migration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidVersion 版本号格式错误
	ErrInvalidVersion = errors.New("invalid version")
	// ErrDuplicateDeclaration 同一存储类型下存在重复版本的迁移声明
	ErrDuplicateDeclaration = errors.New("duplicate migration declaration")
	// ErrMigrationFailed 迁移失败错误
	ErrMigrationFailed = errors.New("migration failed")
	// ErrLocked 存储被另一个迁移锁定
	ErrLocked = errors.New("store is locked by another migration")
	// ErrCorruptLock 锁文件内容无法解析
	ErrCorruptLock = errors.New("corrupt migration lock file")
)

// StoreKind 存储类型标识
type StoreKind string

// StoreCategory 存储分类，决定迁移时的行为
type StoreCategory int

const (
	// CategoryCritical 关键数据，迁移前强制备份
	CategoryCritical StoreCategory = iota
	// CategoryNormal 普通数据，迁移时可选备份
	CategoryNormal
)

// Snapshot 单个存储文档在内存中的内容
type Snapshot interface {
	// Get 将 key 对应的值解码到 out，key 不存在时返回 false
	Get(key string, out any) (bool, error)
	// Set 设置 key 对应的值
	Set(key string, value any) error
}

// Recorder 记录已完成的迁移版本
// 每完成一步调用一次，实现需要同时持久化快照和版本号
type Recorder interface {
	RecordVersion(ctx context.Context, v Version) error
}

// Store 可迁移的存储
type Store interface {
	Snapshot
	Recorder
	// RecordedVersion 返回已记录的迁移版本，从未迁移过时为零值
	RecordedVersion() Version
	// Path 返回存储文件路径，纯内存存储返回空字符串
	Path() string
}

// RunFunc 迁移函数
type RunFunc func(snapshot Snapshot) error

// Declaration 迁移声明
type Declaration struct {
	// Version 迁移目标版本
	Version Version
	// Description 迁移描述（仅用于日志）
	Description string
	// Run 迁移函数，直接修改传入的快照
	Run RunFunc
}

// StoreSchema 存储类型定义
type StoreSchema struct {
	// Kind 存储类型标识
	Kind StoreKind
	// FileName 存储文件名
	FileName string
	// Category 存储分类，决定迁移行为
	Category StoreCategory
	// Registry 该存储类型的全部迁移声明
	Registry *Registry
	// Description 存储描述
	Description string
}

// Observer 迁移步骤观察者
type Observer interface {
	StepApplied(kind StoreKind, v Version, took time.Duration)
	StepFailed(kind StoreKind, v Version, err error)
}

// MigrationConfig 迁移配置
type MigrationConfig struct {
	// Schema 存储类型定义
	Schema *StoreSchema
	// Store 已加载的存储
	Store Store
	// ForceBackup 是否强制备份（覆盖Schema的默认行为）
	ForceBackup *bool
	// Observers 迁移步骤观察者
	Observers []Observer
}

// MigrationResult 迁移结果
type MigrationResult struct {
	// Success 是否成功
	Success bool
	// StoreKind 存储类型
	StoreKind StoreKind
	// FromVersion 迁移前版本
	FromVersion Version
	// ToVersion 迁移后版本
	ToVersion Version
	// Applied 本次执行成功的迁移版本
	Applied []Version
	// BackupPath 备份文件路径（如果有）
	BackupPath string
	// Error 错误信息
	Error error
	// Recovered 是否检测到上次未完成的迁移
	Recovered bool
}

// LockInfo 锁文件信息
type LockInfo struct {
	// StorePath 正在迁移的存储路径
	StorePath string `json:"store_path"`
	// BackupPath 备份文件路径
	BackupPath string `json:"backup_path"`
	// StartTime 迁移开始时间
	StartTime string `json:"start_time"`
	// FromVersion 迁移前版本
	FromVersion Version `json:"from_version"`
	// TargetVersion 目标版本
	TargetVersion Version `json:"target_version"`
	// PID 进程ID
	PID int `json:"pid"`
	// StoreKind 存储类型
	StoreKind StoreKind `json:"store_kind"`
}

// VersionParseError 版本号解析失败
type VersionParseError struct {
	Input string
	Err   error
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Err)
}

func (e *VersionParseError) Unwrap() error { return e.Err }

func (e *VersionParseError) Is(target error) bool { return target == ErrInvalidVersion }

// DuplicateDeclarationError 重复的迁移声明
type DuplicateDeclarationError struct {
	StoreKind StoreKind
	Version   Version
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("store %s: duplicate migration declaration for version %s", e.StoreKind, e.Version)
}

func (e *DuplicateDeclarationError) Is(target error) bool { return target == ErrDuplicateDeclaration }

// MigrationError 某一步迁移失败
type MigrationError struct {
	StoreKind StoreKind
	Version   Version
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("store %s: migration %s failed: %v", e.StoreKind, e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool { return target == ErrMigrationFailed }
