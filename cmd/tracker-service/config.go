package main

import (
	"fmt"
	"os"
	"time"

	"codetrack/internal/common/docstore"
	"codetrack/internal/common/kv"
	"codetrack/internal/tracker/auth"
	"codetrack/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultSQLitePath    = "data/tracker.db"
	defaultCatalogSource = "web/problems.json"
	defaultWebRoot       = "web"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// LocalStoreConfig selects the local key-value backend. The sqlite backend
// is the default; redis suits a shared deployment; memory is for tests and
// throwaway runs.
type LocalStoreConfig struct {
	Backend string          `yaml:"backend"`
	SQLite  SQLiteConfig    `yaml:"sqlite"`
	Redis   *kv.RedisConfig `yaml:"redis"`
}

// SQLiteConfig holds sqlite backend settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig points at the standard problem catalog, either a local file
// or an http(s) URL.
type CatalogConfig struct {
	Source  string `yaml:"source"`
	WebRoot string `yaml:"webRoot"`
}

// RemoteConfig holds the remote document store settings. Remote sync is
// disabled when no endpoint is configured.
type RemoteConfig struct {
	Enabled bool                 `yaml:"enabled"`
	MinIO   docstore.MinIOConfig `yaml:"minio"`
}

// AppConfig holds the tracker-service configuration.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Logger     logger.Config    `yaml:"logger"`
	Auth       auth.Config      `yaml:"auth"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	LocalStore LocalStoreConfig `yaml:"localStore"`
	Remote     RemoteConfig     `yaml:"remote"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth jwtSecret is required")
	}

	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = defaultCatalogSource
	}
	if cfg.Catalog.WebRoot == "" {
		cfg.Catalog.WebRoot = defaultWebRoot
	}

	switch cfg.LocalStore.Backend {
	case "":
		cfg.LocalStore.Backend = "sqlite"
		fallthrough
	case "sqlite":
		if cfg.LocalStore.SQLite.Path == "" {
			cfg.LocalStore.SQLite.Path = defaultSQLitePath
		}
	case "redis":
		if cfg.LocalStore.Redis == nil || cfg.LocalStore.Redis.Addr == "" {
			return nil, fmt.Errorf("localStore redis addr is required")
		}
		applyRedisDefaults(cfg.LocalStore.Redis)
	case "memory":
	default:
		return nil, fmt.Errorf("unknown localStore backend %q", cfg.LocalStore.Backend)
	}

	if cfg.Remote.Enabled && cfg.Remote.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("remote minio endpoint is required when remote is enabled")
	}

	return &cfg, nil
}

func applyRedisDefaults(cfg *kv.RedisConfig) {
	defaults := kv.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
}
