package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.Get(ctx, NamespaceDevice, KeyDeviceID)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.Set(ctx, NamespaceDevice, KeyDeviceID, "first"))
	require.NoError(t, s.Set(ctx, NamespaceDevice, KeyDeviceID, "second"))
	require.NoError(t, s.Set(ctx, NamespaceMigration, KeyLastRun, "now"))

	v, err = s.Get(ctx, NamespaceDevice, KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	all, err := s.GetAll(ctx, NamespaceDevice)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyDeviceID: "second"}, all)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, NamespaceMigration, KeyLastRun, "yesterday"))
	require.NoError(t, s.Close())

	// 表结构已是最新，再次打开不会报错
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, NamespaceMigration, KeyLastRun)
	require.NoError(t, err)
	assert.Equal(t, "yesterday", v)
	assert.Equal(t, path, s.Path())
}

func TestStore_History(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []HistoryEntry{
		{StoreKind: "cluster-store", Version: "5.0.0-beta.13", Status: StatusApplied, Duration: 15 * time.Millisecond, AppVersion: "1.0.0"},
		{StoreKind: "hotbar-store", Version: "5.0.0-alpha.0", Status: StatusApplied},
		{StoreKind: "weblink-store", Version: "5.1.4", Status: StatusFailed, Error: "boom", PID: 42},
	}
	for _, e := range entries {
		require.NoError(t, s.RecordStep(ctx, e))
	}

	all, err := s.History(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// 最新的在前
	assert.Equal(t, "weblink-store", all[0].StoreKind)
	assert.Equal(t, StatusFailed, all[0].Status)
	assert.Equal(t, "boom", all[0].Error)
	assert.Equal(t, 42, all[0].PID)
	assert.False(t, all[0].CreatedAt.IsZero())

	clusters, err := s.History(ctx, "cluster-store", 10)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "5.0.0-beta.13", clusters[0].Version)
	assert.Equal(t, 15*time.Millisecond, clusters[0].Duration)
	assert.Equal(t, "1.0.0", clusters[0].AppVersion)
	assert.NotZero(t, clusters[0].PID)

	limited, err := s.History(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGlobalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	t.Cleanup(func() { _ = Close() })

	s := GetStore()
	require.NotNil(t, s)
	assert.Equal(t, filepath.Join(dir, "metadata.db"), s.Path())

	// 重复初始化保持原实例
	require.NoError(t, Init(t.TempDir()))
	assert.Same(t, s, GetStore())

	require.NoError(t, Close())
	assert.Nil(t, GetStore())
	assert.NoError(t, Close())
}
