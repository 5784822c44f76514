// Package document 提供单个 JSON 存储文档的读写
//
// 文档是一个 JSON 对象，存储字段位于顶层，已应用的迁移版本保存在
// __internal__.migrations.version 中，与数据写入同一个文件。
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/lensapp/storemigrate/src/pkg/migration"
)

const (
	internalKey       = "__internal__"
	versionMarkerPath = internalKey + ".migrations.version"
)

// ErrInvalidDocument 文件内容不是 JSON 对象
var ErrInvalidDocument = errors.New("invalid store document")

// Document 存储文档
type Document struct {
	path    string
	mu      sync.RWMutex
	fields  map[string]json.RawMessage
	version migration.Version
}

var _ migration.Store = (*Document)(nil)

// New 创建一个不落盘的空文档
func New() *Document {
	return &Document{fields: make(map[string]json.RawMessage)}
}

// Open 读取存储文件，文件不存在时返回空文档
// 版本标记格式错误时返回 migration.ErrInvalidVersion
func Open(path string) (*Document, error) {
	d := &Document{path: path, fields: make(map[string]json.RawMessage)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return d, nil
	}

	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, path)
	}

	if marker := gjson.GetBytes(data, versionMarkerPath); marker.Exists() {
		if marker.Type != gjson.String {
			return nil, fmt.Errorf("%s: %w", path, &migration.VersionParseError{
				Input: marker.Raw,
				Err:   fmt.Errorf("version marker is not a string"),
			})
		}
		v, err := migration.ParseVersion(marker.String())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d.version = v
	}

	if err := json.Unmarshal(data, &d.fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	delete(d.fields, internalKey)

	return d, nil
}

// Path 返回存储文件路径
func (d *Document) Path() string {
	return d.path
}

// Get 将 key 对应的值解码到 out
func (d *Document) Get(key string, out any) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	raw, ok := d.fields[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("field %q has unexpected shape: %w", key, err)
	}
	return true, nil
}

// Set 设置 key 对应的值
func (d *Document) Set(key string, value any) error {
	if key == internalKey {
		return fmt.Errorf("field %q is reserved", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", key, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[key] = raw
	return nil
}

// Keys 返回排序后的字段名
func (d *Document) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordedVersion 返回已记录的迁移版本
func (d *Document) RecordedVersion() migration.Version {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// RecordVersion 更新版本标记并把文档整体写盘
func (d *Document) RecordVersion(_ context.Context, v migration.Version) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.version
	d.version = v
	if err := d.saveLocked(); err != nil {
		d.version = prev
		return err
	}
	return nil
}

// Save 把文档写盘
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked()
}

// MarshalJSON 输出完整文档（包含版本标记）
func (d *Document) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.encodeLocked()
}

func (d *Document) encodeLocked() ([]byte, error) {
	out := make(map[string]any, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	if !d.version.IsZero() {
		out[internalKey] = map[string]any{
			"migrations": map[string]string{"version": d.version.String()},
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// saveLocked 先写临时文件再重命名，避免写到一半时崩溃留下损坏的文件
func (d *Document) saveLocked() error {
	if d.path == "" {
		return nil
	}

	data, err := d.encodeLocked()
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
