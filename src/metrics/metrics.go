// Package metrics 迁移相关的 prometheus 指标
// 迁移工具是一次性进程，指标写入 node_exporter textfile 目录而不是通过 HTTP 暴露
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lensapp/storemigrate/src/pkg/migration"
)

const namespace = "lens_store"

// Collector 迁移指标
type Collector struct {
	registry *prometheus.Registry

	steps     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	recorded  *prometheus.GaugeVec
	conflicts *prometheus.CounterVec

	mu          sync.Mutex
	lastVersion map[migration.StoreKind]string
}

var _ migration.Observer = (*Collector)(nil)

// New 创建指标集合，使用独立的 registry
func New() *Collector {
	c := &Collector{
		registry:    prometheus.NewRegistry(),
		lastVersion: make(map[migration.StoreKind]string),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_steps_total",
			Help:      "Migration steps executed, by store kind, version and result.",
		}, []string{"store", "version", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_step_duration_seconds",
			Help:      "Duration of successful migration steps.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"store"}),
		recorded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recorded_version_info",
			Help:      "Recorded migration version of each store, value is always 1.",
		}, []string{"store", "version"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relocation_conflicts_total",
			Help:      "Local storage files removed because the new id was already taken.",
		}, []string{"store"}),
	}
	c.registry.MustRegister(c.steps, c.duration, c.recorded, c.conflicts)
	return c
}

// Registry 返回内部 registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StepApplied 实现 migration.Observer
func (c *Collector) StepApplied(kind migration.StoreKind, v migration.Version, took time.Duration) {
	c.steps.WithLabelValues(string(kind), v.String(), "applied").Inc()
	c.duration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// StepFailed 实现 migration.Observer
func (c *Collector) StepFailed(kind migration.StoreKind, v migration.Version, _ error) {
	c.steps.WithLabelValues(string(kind), v.String(), "failed").Inc()
}

// RelocationConflict 记录一次附属存储冲突
func (c *Collector) RelocationConflict(kind migration.StoreKind) {
	c.conflicts.WithLabelValues(string(kind)).Inc()
}

// SetRecordedVersion 记录存储当前的迁移版本
func (c *Collector) SetRecordedVersion(kind migration.StoreKind, v migration.Version) {
	version := v.String()
	if version == "" {
		version = "none"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.lastVersion[kind]; ok && prev != version {
		c.recorded.DeleteLabelValues(string(kind), prev)
	}
	c.lastVersion[kind] = version
	c.recorded.WithLabelValues(string(kind), version).Set(1)
}

// WriteTextfile 以 prometheus 文本格式写入文件
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
