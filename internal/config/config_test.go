package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "HTTPS_PROXY", "STATE_FILE", "SQLITE_PATH",
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "RUN_ON_START", "CONFIG_PATH",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.BaseURL)
	assert.Equal(t, 3, cfg.Telegram.SendRetries)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "data/stocks.json", cfg.Schedule.StateFile)
	assert.Equal(t, 5*time.Second, cfg.Cooldown())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Schedule.RunOnStart)

	assert.EqualError(t, cfg.Validate(), "telegram.bot_token is required")
}

func TestLoad_FileAndOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  bot_token: from-file
data_source:
  provider: rest
  base_url: http://quotes.local
  api_key: k
schedule:
  cooldown_sec: 2
database:
  sqlite_path: file.db
  retention_days: 7
log:
  level: debug
  tracing: true
proxy: http://file-proxy
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("SQLITE_PATH", "env.db")
	t.Setenv("RUN_ON_START", "true")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "rest", cfg.DataSource.Provider)
	assert.Equal(t, "http://quotes.local", cfg.DataSource.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Cooldown())
	assert.Equal(t, "env.db", cfg.Database.SQLitePath)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Log.Tracing)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, "http://file-proxy", cfg.Proxy)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(*Config) {}, ""},
		{"rest needs base url", func(c *Config) { c.DataSource.Provider = "rest" }, "data_source.base_url is required for the rest provider"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, `data_source.provider "bloomberg" is not one of yahoo, rest, mock`},
		{"negative cooldown", func(c *Config) { c.Schedule.CooldownSec = -1 }, "schedule.cooldown_sec must not be negative"},
		{"bad prune cron", func(c *Config) { c.Database.PruneCron = "every day" }, "database.prune_cron"},
		{"zero retries", func(c *Config) { c.Telegram.SendRetries = 0 }, "telegram.send_retries must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPath(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, DefaultPath, Path())
	t.Setenv("CONFIG_PATH", "/etc/stockpulse.yaml")
	assert.Equal(t, "/etc/stockpulse.yaml", Path())
}
