// Package config 提供服务配置加载
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultModelPath    = "model.json"
	DefaultModelVersion = "unknown"
	DefaultPort         = 5000
	DefaultMaxBodyBytes = 1 << 20

	EnvModelPath    = "MODEL_PATH"
	EnvModelVersion = "MODEL_VERSION"
	EnvPort         = "PORT"
	EnvLogLevel     = "LOG_LEVEL"
)

// ModelConfig 模型配置
type ModelConfig struct {
	Path         string `yaml:"path"`
	Version      string `yaml:"version"`
	DisableCache bool   `yaml:"disable_cache"`
	CacheSize    int    `yaml:"cache_size"`
	Watch        bool   `yaml:"watch"`
}

// HTTPConfig HTTP配置
type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DatabaseConfig 审计数据库配置，Path为空时禁用
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	EnableStream bool `yaml:"enable_stream"`
}

type Config struct {
	Model      ModelConfig      `yaml:"model"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Path:    DefaultModelPath,
			Version: DefaultModelVersion,
			Watch:   true,
		},
		HTTP: HTTPConfig{
			Port:           DefaultPort,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   DefaultMaxBodyBytes,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Monitoring: MonitoringConfig{EnableStream: true},
	}
}

// Load 读取YAML配置文件并应用环境变量覆盖。文件不存在时使用默认配置。
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		payload, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(payload, config); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvModelPath); ok {
		c.Model.Path = value
	}
	if value, ok := lookup(EnvModelVersion); ok {
		c.Model.Version = value
	}
	if value, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Log.Level = value
	}
	if value, ok := lookup(EnvPort); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, value, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.Model.CacheSize < 0 {
		return fmt.Errorf("model cache size %d is negative", c.Model.CacheSize)
	}
	return nil
}

// Defaults 返回作为环境变量回退值的模型设置
func (c *Config) Defaults() Settings {
	return Settings{ModelPath: c.Model.Path, ModelVersion: c.Model.Version}
}
