package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config is the process-level engine configuration, loaded once at
// startup from JSON with environment overrides.
type Config struct {
	Bot     BotConfig     `json:"bot"`
	Engine  EngineConfig  `json:"engine"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
}

type BotConfig struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
	// OwnerIDs are absolute bot owners, exempt everywhere.
	OwnerIDs []string `json:"owner_ids"`
}

type EngineConfig struct {
	Enabled          bool `json:"enabled"`
	SweepIntervalSec int  `json:"sweep_interval_seconds"`
	// SanctionTimeoutMs bounds each external ban/kick/revoke attempt.
	SanctionTimeoutMs int `json:"sanction_timeout_ms"`
	AuditRetries      int `json:"audit_retries"`
	AuditBackoffMs    int `json:"audit_backoff_ms"`
}

type StorageConfig struct {
	Path string `json:"path"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault falls back to defaults (plus env) when the config
// file is missing or unreadable.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Enabled:           true,
			SweepIntervalSec:  600,
			SanctionTimeoutMs: 2000,
			AuditRetries:      3,
			AuditBackoffMs:    400,
		},
		Storage: StorageConfig{
			Path: "sentinel.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Path:       "logs/sentinel.log",
			MaxSizeMB:  64,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9109",
		},
	}
}

func (c *Config) applyEnv() {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		c.Bot.Token = token
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		c.Bot.ClientID = clientID
	}
	if dbPath := os.Getenv("SENTINEL_DB_PATH"); dbPath != "" {
		c.Storage.Path = dbPath
	}
	if addr := os.Getenv("SENTINEL_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

func (c *Config) SweepInterval() time.Duration {
	if c.Engine.SweepIntervalSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Engine.SweepIntervalSec) * time.Second
}

func (c *Config) SanctionTimeout() time.Duration {
	if c.Engine.SanctionTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Engine.SanctionTimeoutMs) * time.Millisecond
}

func (c *Config) AuditBackoff() time.Duration {
	if c.Engine.AuditBackoffMs <= 0 {
		return 400 * time.Millisecond
	}
	return time.Duration(c.Engine.AuditBackoffMs) * time.Millisecond
}
