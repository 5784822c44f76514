package migration

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version 迁移版本号
// 零值表示“尚未执行过任何迁移”，排在所有已解析版本之前
type Version struct {
	v *semver.Version
}

// ParseVersion 解析版本号字符串
// 必须是完整的 major.minor.patch，"1" 或 "1.2" 这类缩写视为格式错误；允许前缀 v
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, &VersionParseError{Input: s, Err: fmt.Errorf("empty version")}
	}
	v, err := semver.StrictNewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return Version{}, &VersionParseError{Input: s, Err: err}
	}
	return Version{v: v}, nil
}

// MustParseVersion 解析版本号，失败时panic
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero 是否为零值版本
func (v Version) IsZero() bool {
	return v.v == nil
}

// Compare 比较两个版本
// 返回: -1 (v < o), 0 (v == o), 1 (v > o)
func (v Version) Compare(o Version) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	}

	if c := compareUint(v.v.Major(), o.v.Major()); c != 0 {
		return c
	}
	if c := compareUint(v.v.Minor(), o.v.Minor()); c != 0 {
		return c
	}
	if c := compareUint(v.v.Patch(), o.v.Patch()); c != 0 {
		return c
	}

	// 预发布版本排在正式版本之前，两个预发布标签按字符串比较
	vp, op := v.v.Prerelease(), o.v.Prerelease()
	switch {
	case vp == op:
		return 0
	case vp == "":
		return 1
	case op == "":
		return -1
	}
	return strings.Compare(vp, op)
}

// LessThan v < o
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// GreaterThan v > o
func (v Version) GreaterThan(o Version) bool {
	return v.Compare(o) > 0
}

// Equal v == o
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	return v.v.String()
}

// MarshalText 实现 encoding.TextMarshaler
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，空字符串解析为零值
func (v *Version) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = Version{}
		return nil
	}
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
