package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig `mapstructure:"upstream"`
	Session   SessionConfig  `mapstructure:"session"`
	Database  DatabaseConfig
	Redis     RedisConfig
	Registry  RegistryConfig  `mapstructure:"registry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// UpstreamConfig points at the service that registers students and serves
// form schemas. A zero timeout leaves requests bounded only by the caller.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout_seconds"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl_hours"`
	Store      string        `mapstructure:"store"` // memory | redis
	IdleSweep  time.Duration `mapstructure:"idle_minutes"`
}

type DatabaseConfig struct {
	Driver    string // mysql | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	Path      string // sqlite file
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RegistryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	FormsDir    string `mapstructure:"forms_dir"`
	DefaultForm string `mapstructure:"default_form"`
	Watch       bool   `mapstructure:"watch"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("upstream.base_url", "http://localhost:8080/registry")
	v.SetDefault("upstream.timeout_seconds", 0)
	v.SetDefault("session.cookie_name", "sf_session")
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.idle_minutes", 60)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/registry.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("registry.forms_dir", "configs/forms")
	v.SetDefault("registry.default_form", "student-profile")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STUDENT_FORMS")
	v.AutomaticEnv()

	setDefaults(v)

	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Upstream
	v.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL")

	// Session
	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.store", "SESSION_STORE")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Registry
	v.BindEnv("registry.enabled", "REGISTRY_ENABLED")
	v.BindEnv("registry.forms_dir", "REGISTRY_FORMS_DIR")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Upstream.Timeout = cfg.Upstream.Timeout * time.Second
	cfg.Session.TTL = cfg.Session.TTL * time.Hour
	cfg.Session.IdleSweep = cfg.Session.IdleSweep * time.Minute

	if cfg.Server.Mode == "release" && len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("session secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.Session.Secret))
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret must be set")
	}
	if cfg.Session.Store != "memory" && cfg.Session.Store != "redis" {
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.Path != "" && cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			os.MkdirAll(dir, 0755)
		}
	}

	return &cfg, nil
}
