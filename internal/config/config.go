package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Intervals IntervalsConfig `yaml:"intervals"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	State     StateConfig     `yaml:"state"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig is optional; an empty host disables persistence.
type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	// Migrations overrides the embedded schema with a directory on disk.
	Migrations string `yaml:"migrations"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// TelegramConfig is optional; an empty token disables the bot.
type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AllowedUsers []int64 `yaml:"allowed_users"`
}

type IntervalsConfig struct {
	APIKey    string `yaml:"api_key"`
	AthleteID string `yaml:"athlete_id"`
	BaseURL   string `yaml:"base_url"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Enabled reports whether the Telegram bot should run.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix STRONGSYNC_ and underscore-separated paths:
//
//	STRONGSYNC_SERVER_HOST, STRONGSYNC_SERVER_PORT,
//	STRONGSYNC_DB_HOST, STRONGSYNC_DB_PORT, STRONGSYNC_DB_NAME,
//	STRONGSYNC_DB_USER, STRONGSYNC_DB_PASSWORD, STRONGSYNC_DB_SSLMODE,
//	STRONGSYNC_AUTH_API_KEY,
//	STRONGSYNC_TELEGRAM_TOKEN, STRONGSYNC_TELEGRAM_ALLOWED_USERS (comma-separated),
//	STRONGSYNC_INTERVALS_API_KEY, STRONGSYNC_INTERVALS_ATHLETE_ID, STRONGSYNC_INTERVALS_BASE_URL,
//	STRONGSYNC_TAILSCALE_ENABLED, STRONGSYNC_TAILSCALE_HOSTNAME,
//	STRONGSYNC_STATE_DIR, STRONGSYNC_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("STRONGSYNC_SERVER_HOST", &cfg.Server.Host)
	setInt("STRONGSYNC_SERVER_PORT", &cfg.Server.Port)
	setString("STRONGSYNC_DB_HOST", &cfg.Database.Host)
	setInt("STRONGSYNC_DB_PORT", &cfg.Database.Port)
	setString("STRONGSYNC_DB_NAME", &cfg.Database.Name)
	setString("STRONGSYNC_DB_USER", &cfg.Database.User)
	setString("STRONGSYNC_DB_PASSWORD", &cfg.Database.Password)
	setString("STRONGSYNC_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("STRONGSYNC_AUTH_API_KEY", &cfg.Auth.APIKey)
	setString("STRONGSYNC_TELEGRAM_TOKEN", &cfg.Telegram.Token)
	setString("STRONGSYNC_INTERVALS_API_KEY", &cfg.Intervals.APIKey)
	setString("STRONGSYNC_INTERVALS_ATHLETE_ID", &cfg.Intervals.AthleteID)
	setString("STRONGSYNC_INTERVALS_BASE_URL", &cfg.Intervals.BaseURL)
	setString("STRONGSYNC_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("STRONGSYNC_STATE_DIR", &cfg.State.Dir)
	setString("STRONGSYNC_LOG_LEVEL", &cfg.Log.Level)

	if v := os.Getenv("STRONGSYNC_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("STRONGSYNC_TELEGRAM_ALLOWED_USERS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		cfg.Telegram.AllowedUsers = ids
	}
}

func applyDefaults(cfg *Config) {
	if cfg.State.Dir == "" {
		cfg.State.Dir = "data"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "strongsync"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Intervals.APIKey == "" {
		return fmt.Errorf("intervals.api_key is required")
	}
	if c.Intervals.AthleteID == "" {
		return fmt.Errorf("intervals.athlete_id is required")
	}
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
