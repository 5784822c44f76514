package consts

import (
	"fmt"
	"os"
	"runtime"
)

const (
	AppName = "lens-storemigrate"
)

// 环境变量
const (
	EnvAppDataPath = "LENS_APPDATA_PATH"
	EnvSentryDSN   = "LENS_SENTRY_DSN"
	EnvDebug       = "LENS_DEBUG"
)

type Info struct {
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	BuildTime  string `json:"build_time"`
	GitHash    string `json:"git_hash"`
	Pid        int    `json:"pid"`
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
}

// 通过 -ldflags 在链接阶段注入
var (
	BuildTime  string
	AppVersion string
	GitHash    string
)

// GetAppInfo 返回应用信息
// 必须使用函数而非变量，AppVersion 等字段在链接阶段才有值
func GetAppInfo() Info {
	return Info{
		AppName:    AppName,
		AppVersion: AppVersion,
		BuildTime:  BuildTime,
		GitHash:    GitHash,
		Pid:        os.Getpid(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoVersion:  runtime.Version(),
	}
}
