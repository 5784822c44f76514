package clusters

import (
	"encoding/json"

	"github.com/lensapp/storemigrate/src/pkg/document"
)

// Model 集群记录
// 未识别的字段保存在 Extra 中，写回时原样输出
type Model struct {
	ID                   string                     `json:"id"`
	KubeConfigPath       string                     `json:"kubeConfigPath"`
	ContextName          string                     `json:"contextName"`
	Preferences          *Preferences               `json:"preferences,omitempty"`
	Metadata             map[string]json.RawMessage `json:"metadata,omitempty"`
	Labels               map[string]string          `json:"labels,omitempty"`
	AccessibleNamespaces []string                   `json:"accessibleNamespaces,omitempty"`
	Workspace            string                     `json:"workspace,omitempty"`
	Workspaces           []string                   `json:"workspaces,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Preferences 集群偏好设置
type Preferences struct {
	TerminalCWD   string   `json:"terminalCWD,omitempty"`
	ClusterName   string   `json:"clusterName,omitempty"`
	Icon          string   `json:"icon,omitempty"`
	IconOrder     *int     `json:"iconOrder,omitempty"`
	HTTPSProxy    string   `json:"httpsProxy,omitempty"`
	HiddenMetrics []string `json:"hiddenMetrics,omitempty"`

	// Prometheus 与 PrometheusProvider 只能成对出现
	Prometheus         *PrometheusService  `json:"prometheus,omitempty"`
	PrometheusProvider *PrometheusProvider `json:"prometheusProvider,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// PrometheusService 集群内 Prometheus 服务位置
type PrometheusService struct {
	Namespace string `json:"namespace"`
	Service   string `json:"service"`
	Port      int    `json:"port"`
	Prefix    string `json:"prefix"`
}

// PrometheusProvider Prometheus 查询方言
type PrometheusProvider struct {
	Type string `json:"type"`
}

var modelFields = []string{
	"id", "kubeConfigPath", "contextName", "preferences", "metadata",
	"labels", "accessibleNamespaces", "workspace", "workspaces",
}

var preferencesFields = []string{
	"terminalCWD", "clusterName", "icon", "iconOrder", "httpsProxy",
	"hiddenMetrics", "prometheus", "prometheusProvider",
}

type modelAlias Model

func (m *Model) UnmarshalJSON(data []byte) error {
	var a modelAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := document.ExtraFields(data, modelFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*m = Model(a)
	return nil
}

func (m Model) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(modelAlias(m))
	if err != nil {
		return nil, err
	}
	return document.WithExtraFields(data, m.Extra)
}

type preferencesAlias Preferences

func (p *Preferences) UnmarshalJSON(data []byte) error {
	var a preferencesAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := document.ExtraFields(data, preferencesFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*p = Preferences(a)
	return nil
}

func (p Preferences) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(preferencesAlias(p))
	if err != nil {
		return nil, err
	}
	return document.WithExtraFields(data, p.Extra)
}
