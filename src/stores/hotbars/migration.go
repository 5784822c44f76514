// Package hotbars 热键栏存储的数据模型与迁移
package hotbars

import (
	uuid "github.com/satori/go.uuid"

	"github.com/lensapp/storemigrate/src/pkg/migration"
)

const (
	// StoreKind 热键栏存储类型
	StoreKind migration.StoreKind = "hotbar-store"
	// FileName 热键栏存储文件名
	FileName = "lens-hotbar-store.json"

	// FieldHotbars 热键栏列表字段
	FieldHotbars = "hotbars"

	// DefaultHotbarVersion 重置为默认热键栏的版本
	DefaultHotbarVersion = "5.0.0-alpha.0"

	// DefaultCells 每个热键栏的格子数
	DefaultCells = 12
	// DefaultHotbarName 默认热键栏名称
	DefaultHotbarName = "default"
)

// CatalogEntity 固定在默认热键栏第一格的目录入口
var CatalogEntity = EntityRef{
	UID:    "catalog-entity",
	Name:   "Catalog",
	Source: "app",
}

// Hotbar 热键栏
type Hotbar struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Items []*Item `json:"items"`
}

// Item 热键栏中的一格，空格子为 nil
type Item struct {
	Entity EntityRef         `json:"entity"`
	Params map[string]string `json:"params,omitempty"`
}

// EntityRef 指向目录实体
type EntityRef struct {
	UID    string `json:"uid"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
}

// IDGenerator 生成热键栏 ID
type IDGenerator func() (string, error)

// RandomID 默认的 ID 生成器，使用 UUIDv4
func RandomID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// EmptyHotbar 返回所有格子都为空的热键栏
func EmptyHotbar(id, name string) Hotbar {
	return Hotbar{
		ID:    id,
		Name:  name,
		Items: make([]*Item, DefaultCells),
	}
}

// View 热键栏存储快照的字段访问
type View struct {
	snapshot migration.Snapshot
}

// NewView 创建字段访问
func NewView(s migration.Snapshot) View {
	return View{snapshot: s}
}

// Hotbars 读取热键栏列表
func (v View) Hotbars() ([]Hotbar, error) {
	var hotbars []Hotbar
	if _, err := v.snapshot.Get(FieldHotbars, &hotbars); err != nil {
		return nil, err
	}
	return hotbars, nil
}

// SetHotbars 写入热键栏列表
func (v View) SetHotbars(hotbars []Hotbar) error {
	if hotbars == nil {
		hotbars = []Hotbar{}
	}
	return v.snapshot.Set(FieldHotbars, hotbars)
}

// NewDefaultHotbarMigration 返回把热键栏重置为只包含目录入口的默认热键栏的迁移
// newID 为 nil 时使用 RandomID
func NewDefaultHotbarMigration(newID IDGenerator) migration.Declaration {
	if newID == nil {
		newID = RandomID
	}

	return migration.Declaration{
		Version:     migration.MustParseVersion(DefaultHotbarVersion),
		Description: "replace hotbars with the default hotbar",
		Run: func(s migration.Snapshot) error {
			id, err := newID()
			if err != nil {
				return err
			}

			hotbar := EmptyHotbar(id, DefaultHotbarName)
			hotbar.Items[0] = &Item{Entity: CatalogEntity}

			return NewView(s).SetHotbars([]Hotbar{hotbar})
		},
	}
}
