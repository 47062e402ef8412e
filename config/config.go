package config

import (
	"bytes"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Remote     RemoteConfig     `yaml:"remote"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Prefetch   PrefetchConfig   `yaml:"prefetch"`
	Linking    LinkingConfig    `yaml:"linking"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// WorkerPoolConfig sizes the hydration and notification worker pools.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// RemoteConfig describes the order-management API the service talks to.
type RemoteConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Headers         map[string]string `yaml:"headers"`
	PageSize        int               `yaml:"page_size"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	Timeout         time.Duration     `yaml:"-"`
	HTTPProxy       string            `yaml:"http_proxy"`
	RateLimitPerSec float64           `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int               `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// CacheConfig selects where the local link cache lives.
type CacheConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig is used when cache.backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PrefetchConfig controls the periodic batch load of display links.
type PrefetchConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// LinkingConfig tunes the queue confirmation retry.
type LinkingConfig struct {
	ConfirmAttempts    int           `yaml:"confirm_attempts"`
	ConfirmDelayMillis int           `yaml:"confirm_delay_ms"`
	ConfirmDelay       time.Duration `yaml:"-"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Cache backends.
const (
	CacheBackendDatabase = "database"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

// Load reads the configuration from the given path. ${VAR} references in
// the file are expanded from the environment first.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	cfg.Remote.BaseURL = strings.TrimRight(cfg.Remote.BaseURL, "/")
	if cfg.Remote.PageSize <= 0 {
		cfg.Remote.PageSize = 100
	}
	// 0 keeps the transport default: no client-side timeout.
	if cfg.Remote.TimeoutSeconds > 0 {
		cfg.Remote.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendDatabase
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}

	if cfg.Prefetch.IntervalSeconds <= 0 {
		cfg.Prefetch.IntervalSeconds = 60
	}
	cfg.Prefetch.Interval = time.Duration(cfg.Prefetch.IntervalSeconds) * time.Second

	if cfg.Linking.ConfirmAttempts <= 0 {
		cfg.Linking.ConfirmAttempts = 3
	}
	if cfg.Linking.ConfirmDelayMillis <= 0 {
		cfg.Linking.ConfirmDelayMillis = 300
	}
	cfg.Linking.ConfirmDelay = time.Duration(cfg.Linking.ConfirmDelayMillis) * time.Millisecond

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "kds-display-backend"
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
