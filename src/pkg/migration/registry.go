package migration

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry 单个存储类型的迁移声明集合
// 由 RegistryBuilder 构建，构建完成后不可修改，声明按版本升序排列
type Registry struct {
	kind         StoreKind
	declarations []Declaration
}

// Kind 返回存储类型
func (r *Registry) Kind() StoreKind {
	return r.kind
}

// Declarations 返回按版本升序排列的全部声明
func (r *Registry) Declarations() []Declaration {
	out := make([]Declaration, len(r.declarations))
	copy(out, r.declarations)
	return out
}

// Pending 返回版本高于 recorded 的声明，按版本升序排列
func (r *Registry) Pending(recorded Version) []Declaration {
	var out []Declaration
	for _, d := range r.declarations {
		if d.Version.GreaterThan(recorded) {
			out = append(out, d)
		}
	}
	return out
}

// Until 返回版本不高于 v 的声明组成的新注册表
func (r *Registry) Until(v Version) *Registry {
	out := &Registry{kind: r.kind}
	for _, d := range r.declarations {
		if !d.Version.GreaterThan(v) {
			out.declarations = append(out.declarations, d)
		}
	}
	return out
}

// Latest 返回最高的声明版本，没有声明时返回零值
func (r *Registry) Latest() Version {
	if len(r.declarations) == 0 {
		return Version{}
	}
	return r.declarations[len(r.declarations)-1].Version
}

type pendingDeclaration struct {
	version     string
	description string
	run         RunFunc
}

// RegistryBuilder 迁移声明注册表构建器
// 各处可以独立追加声明，Build 时统一校验
type RegistryBuilder struct {
	kind    StoreKind
	pending []pendingDeclaration
}

// NewRegistryBuilder 创建构建器
func NewRegistryBuilder(kind StoreKind) *RegistryBuilder {
	return &RegistryBuilder{kind: kind}
}

// Add 追加一个迁移声明，版本号在 Build 时解析
func (b *RegistryBuilder) Add(version, description string, run RunFunc) *RegistryBuilder {
	b.pending = append(b.pending, pendingDeclaration{
		version:     version,
		description: description,
		run:         run,
	})
	return b
}

// Declare 追加一个已解析版本的迁移声明
func (b *RegistryBuilder) Declare(d Declaration) *RegistryBuilder {
	b.pending = append(b.pending, pendingDeclaration{
		version:     d.Version.String(),
		description: d.Description,
		run:         d.Run,
	})
	return b
}

// Build 校验并构建注册表
// 所有版本号解析错误与重复声明错误会一起返回
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.kind == "" {
		return nil, fmt.Errorf("store kind cannot be empty")
	}

	var errs []error
	seen := make(map[string]bool, len(b.pending))
	reg := &Registry{kind: b.kind}

	for _, p := range b.pending {
		v, err := ParseVersion(p.version)
		if err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", b.kind, err))
			continue
		}
		if p.run == nil {
			errs = append(errs, fmt.Errorf("store %s: migration %s has no run function", b.kind, v))
			continue
		}
		// 按比较语义去重（"1.0" 与 "1.0.0" 视为同一版本）
		key := canonicalKey(v)
		if seen[key] {
			errs = append(errs, &DuplicateDeclarationError{StoreKind: b.kind, Version: v})
			continue
		}
		seen[key] = true
		reg.declarations = append(reg.declarations, Declaration{
			Version:     v,
			Description: p.description,
			Run:         p.run,
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(reg.declarations, func(i, j int) bool {
		return reg.declarations[i].Version.LessThan(reg.declarations[j].Version)
	})
	return reg, nil
}

// MustBuild 构建注册表，失败时panic
func (b *RegistryBuilder) MustBuild() *Registry {
	reg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build migration registry: %v", err))
	}
	return reg
}

func canonicalKey(v Version) string {
	return fmt.Sprintf("%d.%d.%d-%s", v.v.Major(), v.v.Minor(), v.v.Patch(), v.v.Prerelease())
}

// SchemaRegistry 存储类型注册表，管理所有存储类型的定义
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[StoreKind]*StoreSchema
	order   []StoreKind
}

// NewSchemaRegistry 创建存储类型注册表
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[StoreKind]*StoreSchema),
	}
}

// Register 注册存储类型
func (r *SchemaRegistry) Register(schema *StoreSchema) error {
	if schema == nil {
		return fmt.Errorf("schema cannot be nil")
	}
	if schema.Kind == "" {
		return fmt.Errorf("schema kind cannot be empty")
	}
	if schema.FileName == "" {
		return fmt.Errorf("schema %s file name cannot be empty", schema.Kind)
	}
	if schema.Registry == nil {
		return fmt.Errorf("schema %s migration registry cannot be nil", schema.Kind)
	}
	if schema.Registry.Kind() != schema.Kind {
		return fmt.Errorf("schema %s has registry for %s", schema.Kind, schema.Registry.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Kind]; exists {
		return fmt.Errorf("schema kind %s already registered", schema.Kind)
	}

	r.schemas[schema.Kind] = schema
	r.order = append(r.order, schema.Kind)
	return nil
}

// Get 获取存储类型定义
func (r *SchemaRegistry) Get(kind StoreKind) (*StoreSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[kind]
	if !exists {
		return nil, fmt.Errorf("schema kind %s not registered", kind)
	}
	return schema, nil
}

// List 按注册顺序列出所有存储类型
func (r *SchemaRegistry) List() []StoreKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]StoreKind, len(r.order))
	copy(kinds, r.order)
	return kinds
}
