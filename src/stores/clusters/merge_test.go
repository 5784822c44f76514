package clusters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestDeriveID(t *testing.T) {
	a := DeriveID("/home/u/.kube/config", "dev")
	assert.Equal(t, a, DeriveID("/home/u/.kube/config", "dev"))
	assert.NotEqual(t, a, DeriveID("/home/u/.kube/config", "prod"))
	assert.NotEqual(t, a, DeriveID("/home/u/.kube/other", "dev"))
	assert.Len(t, a, 36)
}

func TestMerge_HiddenMetricsUnion(t *testing.T) {
	prev := Model{Preferences: &Preferences{HiddenMetrics: []string{"cpu"}}}
	next := Model{Preferences: &Preferences{HiddenMetrics: []string{"memory", "cpu"}}}

	merged := Merge(prev, next)
	require.NotNil(t, merged.Preferences)
	assert.Equal(t, []string{"cpu", "memory"}, merged.Preferences.HiddenMetrics)
}

func TestMerge_ScalarsFirstWins(t *testing.T) {
	prev := Model{ID: "a", Preferences: &Preferences{TerminalCWD: "/a", IconOrder: intPtr(1)}}
	next := Model{ID: "b", Preferences: &Preferences{TerminalCWD: "/b", ClusterName: "from-next", IconOrder: intPtr(2)}}

	merged := Merge(prev, next)
	assert.Equal(t, "a", merged.ID)
	assert.Equal(t, "/a", merged.Preferences.TerminalCWD)
	assert.Equal(t, "from-next", merged.Preferences.ClusterName, "empty values are filled from later entries")
	assert.Equal(t, 1, *merged.Preferences.IconOrder)
}

func TestMerge_PrometheusPairIsAtomic(t *testing.T) {
	service := &PrometheusService{Namespace: "monitoring", Service: "prometheus", Port: 9090}
	other := &PrometheusService{Namespace: "lens-metrics", Service: "prometheus", Port: 80}
	provider := &PrometheusProvider{Type: "lens"}

	// 前者只有一半配置时整体取后者
	merged := Merge(
		Model{Preferences: &Preferences{Prometheus: service}},
		Model{Preferences: &Preferences{Prometheus: other, PrometheusProvider: provider}},
	)
	assert.Equal(t, other, merged.Preferences.Prometheus)
	assert.Equal(t, provider, merged.Preferences.PrometheusProvider)

	// 前者完整时取前者
	merged = Merge(
		Model{Preferences: &Preferences{Prometheus: service, PrometheusProvider: &PrometheusProvider{Type: "helm"}}},
		Model{Preferences: &Preferences{Prometheus: other, PrometheusProvider: provider}},
	)
	assert.Equal(t, service, merged.Preferences.Prometheus)
	assert.Equal(t, "helm", merged.Preferences.PrometheusProvider.Type)

	// 都不完整时都不设置
	merged = Merge(
		Model{Preferences: &Preferences{Prometheus: service}},
		Model{Preferences: &Preferences{PrometheusProvider: provider}},
	)
	assert.Nil(t, merged.Preferences.Prometheus)
	assert.Nil(t, merged.Preferences.PrometheusProvider)
}

func TestMerge_LabelsAndExtraExistingWins(t *testing.T) {
	prev := Model{
		Labels: map[string]string{"env": "dev"},
		Extra:  map[string]json.RawMessage{"custom": json.RawMessage(`1`)},
	}
	next := Model{
		Labels: map[string]string{"env": "prod", "team": "infra"},
		Extra:  map[string]json.RawMessage{"custom": json.RawMessage(`2`), "other": json.RawMessage(`true`)},
	}

	merged := Merge(prev, next)
	assert.Equal(t, map[string]string{"env": "dev", "team": "infra"}, merged.Labels)
	assert.JSONEq(t, `1`, string(merged.Extra["custom"]))
	assert.JSONEq(t, `true`, string(merged.Extra["other"]))
}

func TestMerge_SetsAndWorkspaces(t *testing.T) {
	prev := Model{Workspace: "ws1", AccessibleNamespaces: []string{"default", ""}}
	next := Model{Workspace: "ws2", AccessibleNamespaces: []string{"kube-system", "default"}}

	merged := Merge(prev, next)
	assert.Equal(t, "ws1", merged.Workspace)
	assert.Equal(t, []string{"ws1", "ws2"}, merged.Workspaces)
	assert.Equal(t, []string{"default", "kube-system"}, merged.AccessibleNamespaces)
}

func TestMerge_MetadataFromFirst(t *testing.T) {
	prev := Model{Metadata: map[string]json.RawMessage{"version": json.RawMessage(`"1.20"`)}}
	next := Model{Metadata: map[string]json.RawMessage{"version": json.RawMessage(`"1.21"`), "distro": json.RawMessage(`"eks"`)}}

	merged := Merge(prev, next)
	assert.Equal(t, map[string]json.RawMessage{"version": json.RawMessage(`"1.20"`)}, merged.Metadata)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	prev := Model{
		Labels:      map[string]string{"a": "1"},
		Preferences: &Preferences{HiddenMetrics: []string{"cpu"}},
	}
	next := Model{
		Labels:      map[string]string{"b": "2"},
		Preferences: &Preferences{HiddenMetrics: []string{"memory"}},
	}

	merged := Merge(prev, next)
	merged.Labels["c"] = "3"
	merged.Preferences.HiddenMetrics[0] = "changed"

	assert.Equal(t, map[string]string{"a": "1"}, prev.Labels)
	assert.Equal(t, []string{"cpu"}, prev.Preferences.HiddenMetrics)
	assert.Equal(t, []string{"memory"}, next.Preferences.HiddenMetrics)
}

func TestMerge_NilPreferences(t *testing.T) {
	assert.Nil(t, Merge(Model{}, Model{}).Preferences)

	merged := Merge(Model{}, Model{Preferences: &Preferences{Icon: "data:image/png"}})
	require.NotNil(t, merged.Preferences)
	assert.Equal(t, "data:image/png", merged.Preferences.Icon)
}

func TestModel_PreservesUnknownFields(t *testing.T) {
	in := `{
		"id": "a",
		"kubeConfigPath": "/k",
		"contextName": "dev",
		"ownerRef": "abc",
		"preferences": {"terminalCWD": "/a", "lensMetricsVersion": 3}
	}`
	var m Model
	require.NoError(t, json.Unmarshal([]byte(in), &m))
	assert.Equal(t, "/a", m.Preferences.TerminalCWD)
	assert.JSONEq(t, `"abc"`, string(m.Extra["ownerRef"]))

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "a",
		"kubeConfigPath": "/k",
		"contextName": "dev",
		"ownerRef": "abc",
		"preferences": {"terminalCWD": "/a", "lensMetricsVersion": 3}
	}`, string(out))
}
