package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" as well as plain integer seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Bitquery   BitqueryConfig   `yaml:"bitquery"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Stream     StreamConfig     `yaml:"stream"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	App        AppConfig        `yaml:"app"`
}

type BitqueryConfig struct {
	URL     string   `yaml:"url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"` // empty selects in-memory stores
}

type ClickHouseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DSN          string `yaml:"dsn"`
	ArchiveBatch int    `yaml:"archive_batch"`
}

type StreamConfig struct {
	InitialBackoff   Duration `yaml:"initial_backoff"`
	MaxBackoff       Duration `yaml:"max_backoff"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	EventBuffer      int      `yaml:"event_buffer"`
}

type RefreshConfig struct {
	CronSpec    string `yaml:"cron_spec"`
	Concurrency int    `yaml:"concurrency"`
	Limit       int    `yaml:"limit"` // tokens per batch, 0 = all
}

type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

type AppConfig struct {
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Load reads a YAML config and fills defaults for anything omitted.
// An empty path returns a fully defaulted config.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err = yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if cfg.Bitquery.Token == "" {
		cfg.Bitquery.Token = os.Getenv("BITQUERY_TOKEN")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bitquery.URL == "" {
		c.Bitquery.URL = "wss://streaming.bitquery.io/eap"
	}
	if c.Bitquery.Timeout <= 0 {
		c.Bitquery.Timeout = Duration(30 * time.Second)
	}
	if c.Stream.InitialBackoff <= 0 {
		c.Stream.InitialBackoff = Duration(5 * time.Second)
	}
	if c.Stream.MaxBackoff <= 0 {
		c.Stream.MaxBackoff = Duration(60 * time.Second)
	}
	if c.Stream.HandshakeTimeout <= 0 {
		c.Stream.HandshakeTimeout = Duration(30 * time.Second)
	}
	if c.Stream.EventBuffer <= 0 {
		c.Stream.EventBuffer = 1024
	}
	if c.Refresh.CronSpec == "" {
		c.Refresh.CronSpec = "@every 5m"
	}
	if c.Refresh.Concurrency <= 0 {
		c.Refresh.Concurrency = 4
	}
	if c.ClickHouse.ArchiveBatch <= 0 {
		c.ClickHouse.ArchiveBatch = 64
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9091"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "pump_tracker"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = Duration(30 * time.Second)
	}
}
