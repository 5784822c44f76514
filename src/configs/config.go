package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lensapp/storemigrate/src/consts"
)

type Log struct {
	OutPutFolder string `yaml:"out_put_folder" json:"out_put_folder"`
	SaveLastLog  bool   `yaml:"save_last_log" json:"save_last_log"`
	SaveEveryLog bool   `yaml:"save_every_log" json:"save_every_log"`
	// RotateDays 指定按"天"为单位滚动日志时，最多保留的天数（<=0 表示不清理）
	RotateDays int `yaml:"rotate_days" json:"rotate_days"`
}

// Migration 迁移行为配置
type Migration struct {
	// ForceBackup 为 nil 时按存储类别决定是否备份
	ForceBackup *bool `yaml:"force_backup,omitempty" json:"force_backup,omitempty"`
	// Parallel 不同存储类型之间并行迁移
	Parallel bool `yaml:"parallel" json:"parallel"`
}

type Sentry struct {
	DSN         string `yaml:"dsn" json:"dsn"`
	Environment string `yaml:"environment" json:"environment"`
}

type Metrics struct {
	// Textfile 迁移结束后写入的 prometheus 文本文件路径，为空时不写
	Textfile string `yaml:"textfile" json:"textfile"`
}

// Config content all config info.
type Config struct {
	File        string    `yaml:"-" json:"-"`
	AppDataPath string    `yaml:"app_data_path" json:"app_data_path"`
	Debug       bool      `yaml:"debug" json:"debug"`
	Log         Log       `yaml:"log" json:"log"`
	Migration   Migration `yaml:"migration" json:"migration"`
	Sentry      Sentry    `yaml:"sentry" json:"sentry"`
	Metrics     Metrics   `yaml:"metrics" json:"metrics"`
}

var config atomic.Value // stores *Config

// SetCurrentConfig 设置全局配置
func SetCurrentConfig(cfg *Config) {
	config.Store(cfg)
}

// GetCurrentConfig 获取全局配置，未设置时返回 nil
func GetCurrentConfig() *Config {
	v := config.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}

// IsDebug 返回全局配置是否开启调试
func IsDebug() bool {
	cfg := GetCurrentConfig()
	return cfg != nil && cfg.Debug
}

// DefaultAppDataPath 返回 Lens 默认的用户数据目录
func DefaultAppDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "Lens")
}

var defaultConfig = Config{
	Log: Log{
		OutPutFolder: "",
		SaveLastLog:  true,
		SaveEveryLog: false,
		RotateDays:   7,
	},
	Sentry: Sentry{
		Environment: "production",
	},
}

// NewConfig 返回默认配置
func NewConfig() *Config {
	cfg := defaultConfig
	cfg.AppDataPath = DefaultAppDataPath()
	newConfigPostProcess(&cfg)
	return &cfg
}

func newConfigPostProcess(c *Config) {
	if c.AppDataPath == "" {
		c.AppDataPath = DefaultAppDataPath()
	}
}

// LogFolder 返回日志目录，未配置时使用 AppDataPath/logs
func (c *Config) LogFolder() string {
	if c.Log.OutPutFolder != "" || c.AppDataPath == "" {
		return c.Log.OutPutFolder
	}
	return filepath.Join(c.AppDataPath, "logs")
}

// NewConfigWithBytes 从 yaml 内容解析配置，未出现的字段使用默认值
func NewConfigWithBytes(b []byte) (*Config, error) {
	cfg := defaultConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	newConfigPostProcess(&cfg)
	return &cfg, nil
}

// NewConfigWithFile 从文件读取配置
func NewConfigWithFile(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("can`t open file: %s: %w", file, err)
	}
	cfg, err := NewConfigWithBytes(b)
	if err != nil {
		return nil, fmt.Errorf("can`t parse file: %s: %w", file, err)
	}
	cfg.File = file
	return cfg, nil
}

// LoadDotEnv 加载当前目录下的 .env 文件，文件不存在时忽略
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(consts.EnvAppDataPath)); v != "" {
		c.AppDataPath = v
	}
	if v := strings.TrimSpace(os.Getenv(consts.EnvSentryDSN)); v != "" {
		c.Sentry.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(consts.EnvDebug)); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", consts.EnvDebug, err)
		}
		c.Debug = debug
	}
	return nil
}

// Verify 检查配置是否可用
func (c *Config) Verify() error {
	if c == nil {
		return fmt.Errorf("配置不存在")
	}
	if c.AppDataPath == "" {
		return fmt.Errorf("未设置用户数据目录")
	}
	info, err := os.Stat(c.AppDataPath)
	if err != nil {
		return fmt.Errorf(`用户数据目录 "%s" 不存在`, c.AppDataPath)
	}
	if !info.IsDir() {
		return fmt.Errorf(`用户数据目录 "%s" 不是目录`, c.AppDataPath)
	}
	if c.Log.RotateDays < 0 {
		return fmt.Errorf("日志保留天数不能小于 0")
	}
	return nil
}
