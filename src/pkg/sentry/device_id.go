package sentry

import (
	"context"
	"strings"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/lensapp/storemigrate/src/pkg/metadata"
)

var (
	// cachedDeviceID 缓存的设备 ID
	cachedDeviceID string
	// deviceIDOnce 确保设备 ID 只生成一次
	deviceIDOnce sync.Once
)

// GetAnonymousDeviceID 获取匿名设备 ID，用作 Sentry 用户标识
// 首次调用时从 metadata 数据库读取，没有则生成并保存
func GetAnonymousDeviceID() string {
	deviceIDOnce.Do(func() {
		cachedDeviceID = loadOrCreateDeviceID()
	})
	return cachedDeviceID
}

// loadOrCreateDeviceID 从 metadata 数据库加载或创建设备 ID
func loadOrCreateDeviceID() string {
	store := metadata.GetStore()
	if store == nil {
		return generateUUID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	deviceID, err := store.Get(ctx, metadata.NamespaceDevice, metadata.KeyDeviceID)
	if err == nil && deviceID != "" {
		return deviceID
	}

	deviceID = generateUUID()
	// 保存失败只会导致下次启动换一个 ID
	_ = store.Set(ctx, metadata.NamespaceDevice, metadata.KeyDeviceID, deviceID)

	return deviceID
}

// generateUUID 生成去掉连字符的 UUIDv4
func generateUUID() string {
	id := uuid.Must(uuid.NewV4())
	return strings.ReplaceAll(id.String(), "-", "")
}
