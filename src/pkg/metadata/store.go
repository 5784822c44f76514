// Package metadata 提供程序元数据的持久化存储
// 用于存储设备标识和存储迁移历史，这些数据与各个存储文件分开保存
package metadata

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var schemaMigrations embed.FS

var (
	// globalStore 全局元数据存储实例
	globalStore *Store
	// storeMu 保护全局存储实例
	storeMu sync.RWMutex
)

// 迁移步骤状态
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
)

// Store 元数据存储
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// HistoryEntry 单个迁移步骤的执行记录
type HistoryEntry struct {
	ID         int64
	StoreKind  string
	Version    string
	Status     string
	Duration   time.Duration
	Error      string
	PID        int
	AppVersion string
	CreatedAt  time.Time
}

// Init 初始化全局元数据存储
// dbDir 应该是 AppDataPath/db 目录
func Init(dbDir string) error {
	storeMu.Lock()
	defer storeMu.Unlock()

	if globalStore != nil {
		return nil
	}

	s, err := Open(filepath.Join(dbDir, "metadata.db"))
	if err != nil {
		return err
	}
	globalStore = s
	return nil
}

// GetStore 获取全局元数据存储实例，未初始化时返回 nil
func GetStore() *Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return globalStore
}

// Close 关闭全局元数据存储
func Close() error {
	storeMu.Lock()
	defer storeMu.Unlock()

	if globalStore == nil {
		return nil
	}

	err := globalStore.Close()
	globalStore = nil
	return err
}

// Open 打开（必要时创建）元数据数据库并升级表结构
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite 单写者，避免 database is locked
	db.SetMaxOpenConns(1)

	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	if err := upgradeSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func upgradeSchema(db *sql.DB) error {
	sourceDriver, err := iofs.New(schemaMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	mig, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to upgrade metadata schema: %w", err)
	}
	return nil
}

// Path 返回数据库文件路径
func (s *Store) Path() string {
	return s.dbPath
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Get 从指定命名空间获取值，键不存在时返回空字符串
func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query metadata: %w", err)
	}
	return value, nil
}

// Set 在指定命名空间设置值
func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, strftime('%s', 'now'))
		 ON CONFLICT(namespace, key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = strftime('%s', 'now')`,
		namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// GetAll 获取指定命名空间的所有键值对
func (s *Store) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM metadata WHERE namespace = ?",
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		result[key] = value
	}

	return result, rows.Err()
}

// RecordStep 追加一条迁移步骤记录
func (s *Store) RecordStep(ctx context.Context, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	pid := entry.PID
	if pid == 0 {
		pid = os.Getpid()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_history
		 (store_kind, version, status, duration_ms, error, pid, app_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.StoreKind, entry.Version, entry.Status, entry.Duration.Milliseconds(),
		entry.Error, pid, entry.AppVersion, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record migration step: %w", err)
	}
	return nil
}

// History 按时间倒序返回某个存储类型的迁移记录，storeKind 为空时返回全部
func (s *Store) History(ctx context.Context, storeKind string, limit int) ([]*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, store_kind, version, status, duration_ms, error, pid, app_version, created_at
		FROM migration_history`
	args := []any{}
	if storeKind != "" {
		query += " WHERE store_kind = ?"
		args = append(args, storeKind)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query migration history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			durationMs int64
			createdAt  int64
		)
		if err := rows.Scan(&e.ID, &e.StoreKind, &e.Version, &e.Status, &durationMs,
			&e.Error, &e.PID, &e.AppVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan migration history row: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// 预定义的命名空间常量
const (
	// NamespaceDevice 设备相关信息（如 Sentry 设备 ID）
	NamespaceDevice = "device"
	// NamespaceMigration 存储迁移状态
	NamespaceMigration = "migration"
)

// 预定义的键常量
const (
	// KeyDeviceID Sentry 设备标识
	KeyDeviceID = "sentry_device_id"
	// KeyLastRun 最近一次批量迁移的时间（RFC3339）
	KeyLastRun = "last_run"
)
