// Package config loads tg-bookmarks configuration from defaults, an
// optional YAML or TOML file and TGB_* environment variables, in that
// order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// EnvPrefix prefixes every environment variable, e.g. TGB_DATABASE_DRIVER.
const EnvPrefix = "TGB"

// Run modes
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Lock backends
const (
	LockAuto     = "auto"
	LockRedis    = "redis"
	LockPostgres = "postgres"
	LockNone     = "none"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Media    MediaConfig    `mapstructure:"media"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	// URL enables the Redis run lock when set (redis://host:6379/0)
	URL string `mapstructure:"url"`
}

// RemoteConfig points at the bridge sidecar that owns the Telegram session.
type RemoteConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	PageSize   int           `mapstructure:"page_size"`
}

type MediaConfig struct {
	Dir         string `mapstructure:"dir"`
	Download    bool   `mapstructure:"download"`
	PhotosOnly  bool   `mapstructure:"photos_only"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type SyncConfig struct {
	// Interval between worker runs; 0 disables the worker
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`

	Lock    string        `mapstructure:"lock"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`

	TopicPolicy        string `mapstructure:"topic_policy"`
	FullMode           string `mapstructure:"full_mode"`
	DifferencePageSize int    `mapstructure:"difference_page_size"`
	MaxDifferencePages int    `mapstructure:"max_difference_pages"`
	TopicMessageCap    int    `mapstructure:"topic_message_cap"`

	// StrictRebaseline leaves the cursor alone after a full pass with
	// failed topics
	StrictRebaseline bool `mapstructure:"strict_rebaseline"`
}

type AuthConfig struct {
	// AdminPasswordHash is a bcrypt hash; empty leaves the sync trigger open
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", ModeAll)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.write_timeout", 10*time.Minute)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/bookmarks.sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.url", "")

	v.SetDefault("remote.base_url", "http://localhost:8081")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", time.Duration(0))
	v.SetDefault("remote.max_retries", 3)
	v.SetDefault("remote.page_size", 100)

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.download", true)
	v.SetDefault("media.photos_only", false)
	v.SetDefault("media.max_attempts", 2)

	v.SetDefault("sync.interval", time.Duration(0))
	v.SetDefault("sync.run_on_start", false)
	v.SetDefault("sync.lock", LockAuto)
	v.SetDefault("sync.lock_ttl", 10*time.Minute)
	v.SetDefault("sync.topic_policy", string(domain.TopicPolicyDrop))
	v.SetDefault("sync.full_mode", string(domain.FullSyncReconcile))
	v.SetDefault("sync.difference_page_size", 100)
	v.SetDefault("sync.max_difference_pages", 1000)
	v.SetDefault("sync.topic_message_cap", 500)
	v.SetDefault("sync.strict_rebaseline", false)

	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// Load reads configuration from the OS filesystem. path may be empty.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads configuration with the config file resolved on fs.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Mode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		errs = append(errs, fmt.Errorf("server.mode %q: want api, worker or all", c.Server.Mode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite or postgres", c.Database.Driver))
	}

	switch c.Sync.Lock {
	case LockAuto, LockNone:
	case LockRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("sync.lock redis requires redis.url"))
		}
	case LockPostgres:
		if c.Database.Driver != DriverPostgres {
			errs = append(errs, errors.New("sync.lock postgres requires database.driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("sync.lock %q: want auto, redis, postgres or none", c.Sync.Lock))
	}

	if _, err := domain.ParseTopicPolicy(c.Sync.TopicPolicy); err != nil {
		errs = append(errs, fmt.Errorf("sync.topic_policy: %w", err))
	}
	if _, err := domain.ParseFullSyncMode(c.Sync.FullMode); err != nil {
		errs = append(errs, fmt.Errorf("sync.full_mode: %w", err))
	}
	if c.Sync.DifferencePageSize <= 0 {
		errs = append(errs, errors.New("sync.difference_page_size must be positive"))
	}
	if c.Sync.MaxDifferencePages <= 0 {
		errs = append(errs, errors.New("sync.max_difference_pages must be positive"))
	}
	if c.Sync.TopicMessageCap <= 0 {
		errs = append(errs, errors.New("sync.topic_message_cap must be positive"))
	}
	if c.Sync.Interval < 0 {
		errs = append(errs, errors.New("sync.interval must not be negative"))
	}
	if c.Remote.PageSize <= 0 {
		errs = append(errs, errors.New("remote.page_size must be positive"))
	}

	if c.Auth.AdminPasswordHash != "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when auth.admin_password_hash is set"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// TopicPolicy returns the parsed sync.topic_policy. Call after Validate.
func (c *Config) TopicPolicy() domain.UnresolvedTopicPolicy {
	p, _ := domain.ParseTopicPolicy(c.Sync.TopicPolicy)
	return p
}

// FullMode returns the parsed sync.full_mode. Call after Validate.
func (c *Config) FullMode() domain.FullSyncMode {
	m, _ := domain.ParseFullSyncMode(c.Sync.FullMode)
	return m
}
