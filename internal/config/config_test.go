package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	assert.Equal(t, ModeAll, cfg.Server.Mode)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/bookmarks.sqlite", cfg.Database.Path)
	assert.Equal(t, "media", cfg.Media.Dir)
	assert.True(t, cfg.Media.Download)
	assert.Equal(t, 2, cfg.Media.MaxAttempts)
	assert.Equal(t, 100, cfg.Sync.DifferencePageSize)
	assert.Equal(t, 1000, cfg.Sync.MaxDifferencePages)
	assert.Equal(t, 500, cfg.Sync.TopicMessageCap)
	assert.Equal(t, 10*time.Minute, cfg.Sync.LockTTL)
	assert.Equal(t, time.Duration(0), cfg.Sync.Interval)
	assert.False(t, cfg.Sync.StrictRebaseline)
	assert.Equal(t, time.Duration(0), cfg.Remote.Timeout)
	assert.Equal(t, domain.TopicPolicyDrop, cfg.TopicPolicy())
	assert.Equal(t, domain.FullSyncReconcile, cfg.FullMode())
}

func TestLoad_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/tgb/config.yaml", []byte(`
server:
  port: 9090
  mode: api
database:
  driver: postgres
  url: postgres://localhost/tgb
sync:
  interval: 15m
  topic_policy: general
  full_mode: append
media:
  photos_only: true
`), 0o644))

	cfg, err := LoadFs(fs, "/etc/tgb/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ModeAPI, cfg.Server.Mode)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, domain.TopicPolicyGeneral, cfg.TopicPolicy())
	assert.Equal(t, domain.FullSyncAppend, cfg.FullMode())
	assert.True(t, cfg.Media.PhotosOnly)
	// Unset keys keep defaults
	assert.Equal(t, 500, cfg.Sync.TopicMessageCap)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.toml", []byte(`
[sync]
difference_page_size = 50
`), 0o644))

	t.Setenv("TGB_SYNC_DIFFERENCE_PAGE_SIZE", "25")
	t.Setenv("TGB_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TGB_MEDIA_DOWNLOAD", "false")
	t.Setenv("TGB_REMOTE_TIMEOUT", "45s")

	cfg, err := LoadFs(fs, "config.toml")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Sync.DifferencePageSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Media.Download)
	assert.Equal(t, 45*time.Second, cfg.Remote.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadFs(afero.NewMemMapFs(), "/nope.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "database.driver"},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: "database.url"},
		{name: "unknown mode", mutate: func(c *Config) { c.Server.Mode = "both" }, wantErr: "server.mode"},
		{name: "unknown policy", mutate: func(c *Config) { c.Sync.TopicPolicy = "guess" }, wantErr: "sync.topic_policy"},
		{name: "unknown full mode", mutate: func(c *Config) { c.Sync.FullMode = "mirror" }, wantErr: "sync.full_mode"},
		{name: "zero page size", mutate: func(c *Config) { c.Sync.DifferencePageSize = 0 }, wantErr: "sync.difference_page_size"},
		{name: "negative interval", mutate: func(c *Config) { c.Sync.Interval = -time.Second }, wantErr: "sync.interval"},
		{name: "redis lock without url", mutate: func(c *Config) { c.Sync.Lock = LockRedis }, wantErr: "redis.url"},
		{name: "postgres lock on sqlite", mutate: func(c *Config) { c.Sync.Lock = LockPostgres }, wantErr: "sync.lock"},
		{name: "hash without secret", mutate: func(c *Config) { c.Auth.AdminPasswordHash = "$2a$..." }, wantErr: "auth.jwt_secret"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFs(afero.NewMemMapFs(), "")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
