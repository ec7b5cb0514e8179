package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPath            = "config/config.yaml"
	defaultPort            = ":8080"
	defaultBackendBaseURL  = "http://localhost:8000/api"
	defaultMaxUploadBytes  = 10 << 20
	defaultStubAddr        = ":8000"
	defaultStubOutputDir   = "output"
	defaultStubBucket      = "storytovideo"
	defaultStubExpiryHours = 72
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Backend struct {
		BaseURL string `yaml:"base_url"`
		// MediaHost 为空时取 BaseURL 的 scheme://host
		MediaHost string `yaml:"media_host"`
		// RequestTimeout 单位秒，0 表示不设置超时
		RequestTimeout int `yaml:"request_timeout"`
	} `yaml:"backend"`
	Upload struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"upload"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Stub struct {
		Addr      string  `yaml:"addr"`
		OutputDir string  `yaml:"output_dir"`
		FailRate  float64 `yaml:"fail_rate"`
		LatencyMS int     `yaml:"latency_ms"`
		// MinIO 配置了 endpoint 时生成的文件写入对象存储，否则写本地 output_dir
		MinIO struct {
			Endpoint    string `yaml:"endpoint"`
			AccessKey   string `yaml:"access_key"`
			SecretKey   string `yaml:"secret_key"`
			Bucket      string `yaml:"bucket"`
			UseSSL      bool   `yaml:"use_ssl"`
			ExpiryHours int    `yaml:"expiry_hours"`
		} `yaml:"minio"`
	} `yaml:"stub"`
}

// Default 返回填充了默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load 读取 YAML 配置文件，然后应用环境变量和默认值。
// path 为空时读取 DefaultPath，默认文件不存在时直接使用默认配置。
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("STV_API_BASE_URL")); v != "" {
		c.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STV_PORT")); v != "" {
		c.Server.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("STV_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendBaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	c.Backend.MediaHost = strings.TrimRight(c.Backend.MediaHost, "/")
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = defaultMaxUploadBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Stub.Addr == "" {
		c.Stub.Addr = defaultStubAddr
	}
	if c.Stub.OutputDir == "" {
		c.Stub.OutputDir = defaultStubOutputDir
	}
	if c.Stub.MinIO.Bucket == "" {
		c.Stub.MinIO.Bucket = defaultStubBucket
	}
	if c.Stub.MinIO.ExpiryHours <= 0 {
		c.Stub.MinIO.ExpiryHours = defaultStubExpiryHours
	}
}

// Validate 检查必须为合法值的字段
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url: invalid url %q", c.Backend.BaseURL)
	}
	if c.Backend.MediaHost != "" {
		m, err := url.Parse(c.Backend.MediaHost)
		if err != nil || m.Scheme == "" || m.Host == "" {
			return fmt.Errorf("backend.media_host: invalid url %q", c.Backend.MediaHost)
		}
	}
	if c.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout: must not be negative")
	}
	if c.Stub.FailRate < 0 || c.Stub.FailRate > 1 {
		return fmt.Errorf("stub.fail_rate: must be between 0 and 1")
	}
	return nil
}
