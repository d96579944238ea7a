package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		BaseURL     string `yaml:"base_url"`
		SendRetries int    `yaml:"send_retries"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, rest or mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Schedule struct {
		StateFile   string `yaml:"state_file"`
		CooldownSec int    `yaml:"cooldown_sec"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Cache struct {
		TTLSec int `yaml:"ttl_sec"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath    string `yaml:"sqlite_path"`
		RetentionDays int    `yaml:"retention_days"`
		PruneCron     string `yaml:"prune_cron"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Tracing bool   `yaml:"tracing"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Schedule.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.RunOnStart = b
		}
	}

	// Defaults
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.SendRetries == 0 {
		cfg.Telegram.SendRetries = 3
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.Schedule.StateFile == "" {
		cfg.Schedule.StateFile = "data/stocks.json"
	}
	if cfg.Schedule.CooldownSec == 0 {
		cfg.Schedule.CooldownSec = 5
	}
	if cfg.Cache.TTLSec == 0 {
		cfg.Cache.TTLSec = 60
	}
	if cfg.Database.RetentionDays == 0 {
		cfg.Database.RetentionDays = 30
	}
	if cfg.Database.PruneCron == "" {
		cfg.Database.PruneCron = "0 30 3 * * *"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}
	if c.Telegram.SendRetries < 1 {
		return errors.New("telegram.send_retries must be positive")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return errors.New("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.Schedule.CooldownSec < 0 {
		return errors.New("schedule.cooldown_sec must not be negative")
	}
	if c.Cache.TTLSec < 0 {
		return errors.New("cache.ttl_sec must not be negative")
	}
	if c.Database.RetentionDays < 0 {
		return errors.New("database.retention_days must not be negative")
	}
	if _, err := cron.NewParser(cronFields).Parse(c.Database.PruneCron); err != nil {
		return fmt.Errorf("database.prune_cron: %w", err)
	}
	return nil
}

// cronFields matches cron.WithSeconds.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Cooldown is the pause after each scheduler cycle.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Schedule.CooldownSec) * time.Second
}

// CacheTTL is how long a fetched quote stays fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// Retention is how long cycle records are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}
