// Package weblinks 网页链接存储的数据模型与迁移
package weblinks

import (
	"encoding/json"

	"github.com/lensapp/storemigrate/src/pkg/document"
	"github.com/lensapp/storemigrate/src/pkg/migration"
)

const (
	// StoreKind 网页链接存储类型
	StoreKind migration.StoreKind = "weblink-store"
	// FileName 网页链接存储文件名
	FileName = "lens-weblink-store.json"

	// FieldWeblinks 链接列表字段
	FieldWeblinks = "weblinks"

	// DefaultLinksVersion 加入默认链接的版本
	DefaultLinksVersion = "5.1.4"
)

const (
	docsURL  = "https://docs.k8slens.dev/"
	slackURL = "https://join.slack.com/t/k8slens/shared_invite/zt-wcl8jq3k-68R5Wcmk1o95MLBE5igUDQ"
)

// Weblink 网页链接，未识别的字段保存在 Extra 中
type Weblink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`

	Extra map[string]json.RawMessage `json:"-"`
}

var weblinkFields = []string{"id", "name", "url"}

type weblinkAlias Weblink

func (w *Weblink) UnmarshalJSON(data []byte) error {
	var a weblinkAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := document.ExtraFields(data, weblinkFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*w = Weblink(a)
	return nil
}

func (w Weblink) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(weblinkAlias(w))
	if err != nil {
		return nil, err
	}
	return document.WithExtraFields(data, w.Extra)
}

// DefaultLinks 默认链接，ID 与 URL 相同
var DefaultLinks = []Weblink{
	{ID: "https://k8slens.dev", Name: "Lens Website", URL: "https://k8slens.dev"},
	{ID: docsURL, Name: "Lens Documentation", URL: docsURL},
	{ID: slackURL, Name: "Lens Community Slack", URL: slackURL},
	{ID: "https://twitter.com/k8slens", Name: "Lens on Twitter", URL: "https://twitter.com/k8slens"},
	{ID: "https://medium.com/k8slens", Name: "Lens Official Blog", URL: "https://medium.com/k8slens"},
	{ID: "https://kubernetes.io/docs/home/", Name: "Kubernetes Documentation", URL: "https://kubernetes.io/docs/home/"},
}

// View 网页链接存储快照的字段访问
type View struct {
	snapshot migration.Snapshot
}

// NewView 创建字段访问
func NewView(s migration.Snapshot) View {
	return View{snapshot: s}
}

// Weblinks 读取链接列表
// 字段不是数组时按空列表处理
func (v View) Weblinks() ([]Weblink, error) {
	var links []Weblink
	if _, err := v.snapshot.Get(FieldWeblinks, &links); err != nil {
		var raw any
		if _, rawErr := v.snapshot.Get(FieldWeblinks, &raw); rawErr == nil {
			if _, isList := raw.([]any); !isList {
				return nil, nil
			}
		}
		return nil, err
	}
	return links, nil
}

// SetWeblinks 写入链接列表
func (v View) SetWeblinks(links []Weblink) error {
	if links == nil {
		links = []Weblink{}
	}
	return v.snapshot.Set(FieldWeblinks, links)
}

// NewDefaultLinksMigration 返回追加默认链接的迁移，已存在相同 ID 的链接不会重复追加
func NewDefaultLinksMigration() migration.Declaration {
	return migration.Declaration{
		Version:     migration.MustParseVersion(DefaultLinksVersion),
		Description: "add default weblinks",
		Run: func(s migration.Snapshot) error {
			view := NewView(s)
			links, err := view.Weblinks()
			if err != nil {
				return err
			}

			existing := make(map[string]bool, len(links))
			for _, l := range links {
				existing[l.ID] = true
			}
			for _, l := range DefaultLinks {
				if !existing[l.ID] {
					links = append(links, l)
				}
			}

			return view.SetWeblinks(links)
		},
	}
}
