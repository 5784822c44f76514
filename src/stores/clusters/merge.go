package clusters

import (
	"encoding/json"

	uuid "github.com/satori/go.uuid"
)

// idNamespace 派生集群 ID 使用的 UUIDv5 命名空间，不能修改
var idNamespace = uuid.Must(uuid.FromString("2f3b7a5e-8c1d-4e6f-9a0b-1c2d3e4f5a6b"))

// DeriveID 由 kubeconfig 路径和 context 名称派生稳定的集群 ID
func DeriveID(kubeConfigPath, contextName string) string {
	return uuid.NewV5(idNamespace, kubeConfigPath+":"+contextName).String()
}

// Merge 把 next 合并进 prev，返回新的记录，不修改输入
//
// 标量字段以 prev 为准；Prometheus 配置成对取用；集合字段取并集；
// labels 与未知字段在键冲突时以 prev 为准。
func Merge(prev, next Model) Model {
	return Model{
		ID:                   prev.ID,
		KubeConfigPath:       prev.KubeConfigPath,
		ContextName:          prev.ContextName,
		Preferences:          mergePreferences(prev.Preferences, next.Preferences),
		Metadata:             cloneRaw(prev.Metadata),
		Labels:               mergeLabels(prev.Labels, next.Labels),
		AccessibleNamespaces: mergeSet(prev.AccessibleNamespaces, next.AccessibleNamespaces),
		Workspace:            firstNonEmpty(prev.Workspace, next.Workspace),
		Workspaces:           mergeSet([]string{prev.Workspace, next.Workspace}, prev.Workspaces, next.Workspaces),
		Extra:                mergeRaw(prev.Extra, next.Extra),
	}
}

func mergePreferences(left, right *Preferences) *Preferences {
	if left == nil && right == nil {
		return nil
	}
	l, r := derefPreferences(left), derefPreferences(right)

	merged := &Preferences{
		TerminalCWD:   firstNonEmpty(l.TerminalCWD, r.TerminalCWD),
		ClusterName:   firstNonEmpty(l.ClusterName, r.ClusterName),
		Icon:          firstNonEmpty(l.Icon, r.Icon),
		IconOrder:     firstInt(l.IconOrder, r.IconOrder),
		HTTPSProxy:    firstNonEmpty(l.HTTPSProxy, r.HTTPSProxy),
		HiddenMetrics: mergeSet(l.HiddenMetrics, r.HiddenMetrics),
		Extra:         mergeRaw(l.Extra, r.Extra),
	}
	merged.Prometheus, merged.PrometheusProvider = mergePrometheus(l, r)
	return merged
}

// mergePrometheus 两个字段必须来自同一侧，任一侧都不完整时都不设置
func mergePrometheus(left, right Preferences) (*PrometheusService, *PrometheusProvider) {
	if left.Prometheus != nil && left.PrometheusProvider != nil {
		s, p := *left.Prometheus, *left.PrometheusProvider
		return &s, &p
	}
	if right.Prometheus != nil && right.PrometheusProvider != nil {
		s, p := *right.Prometheus, *right.PrometheusProvider
		return &s, &p
	}
	return nil, nil
}

func mergeLabels(left, right map[string]string) map[string]string {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	merged := make(map[string]string, len(left)+len(right))
	for k, v := range right {
		merged[k] = v
	}
	for k, v := range left {
		merged[k] = v
	}
	return merged
}

// mergeSet 按首次出现的顺序去重，丢弃空字符串
func mergeSet(sets ...[]string) []string {
	var merged []string
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, v := range set {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			merged = append(merged, v)
		}
	}
	return merged
}

func mergeRaw(left, right map[string]json.RawMessage) map[string]json.RawMessage {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	merged := make(map[string]json.RawMessage, len(left)+len(right))
	for k, v := range right {
		merged[k] = v
	}
	for k, v := range left {
		merged[k] = v
	}
	return merged
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePreferences(p *Preferences) *Preferences {
	if p == nil {
		return nil
	}
	out := *p
	out.HiddenMetrics = mergeSet(p.HiddenMetrics)
	out.Extra = cloneRaw(p.Extra)
	if p.IconOrder != nil {
		order := *p.IconOrder
		out.IconOrder = &order
	}
	if p.Prometheus != nil {
		s := *p.Prometheus
		out.Prometheus = &s
	}
	if p.PrometheusProvider != nil {
		pp := *p.PrometheusProvider
		out.PrometheusProvider = &pp
	}
	return &out
}

func derefPreferences(p *Preferences) Preferences {
	if p == nil {
		return Preferences{}
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			n := *v
			return &n
		}
	}
	return nil
}
