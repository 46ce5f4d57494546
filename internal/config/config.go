// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openroles/careers-crawler/internal/selector"
	"github.com/openroles/careers-crawler/internal/title"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Gate      GateConfig      `mapstructure:"gate"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Rules     RulesConfig     `mapstructure:"rules"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	Workers               int     `mapstructure:"workers"`
	UserAgent             string  `mapstructure:"user_agent"`
	RespectRobots         bool    `mapstructure:"respect_robots"`
	ThrottleIntervalHours int     `mapstructure:"throttle_interval_hours"`
	RequestsPerSecond     float64 `mapstructure:"requests_per_second"`
	SnapshotPages         bool    `mapstructure:"snapshot_pages"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	MinBodyBytes  int  `mapstructure:"min_body_bytes"`
}

// DBConfig controls access to Postgres. An empty DSN selects the
// in-memory stores.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// RedisConfig points the gate at its backend. Empty URL disables the gate.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// StorageConfig selects the blob store for page snapshots. An empty
// bucket keeps snapshots in memory (or disabled, per crawler config).
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds the notification topic. Empty project disables
// Pub/Sub; summaries then go to the log notifier only.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// GateConfig tunes the response cache and rate counter.
type GateConfig struct {
	RateLimit       int `mapstructure:"rate_limit"`
	RateWindowHours int `mapstructure:"rate_window_hours"`
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

// SchedulerConfig controls the periodic crawl trigger.
type SchedulerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	IntervalHours int  `mapstructure:"interval_hours"`
}

// RulesConfig carries the externally configurable rule tables: the title
// normalization tables and the platform selector table. Empty sections
// fall back to the built-in defaults.
type RulesConfig struct {
	Title     title.Tables        `mapstructure:"title"`
	Platforms []selector.Platform `mapstructure:"platforms"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("crawler.workers", 4)
	v.SetDefault("crawler.user_agent", "careers-crawler-bot/0.1")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.throttle_interval_hours", 12)
	v.SetDefault("crawler.requests_per_second", 2.0)
	v.SetDefault("crawler.snapshot_pages", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_body_bytes", 2048)
	v.SetDefault("gate.rate_limit", 3)
	v.SetDefault("gate.rate_window_hours", 24)
	v.SetDefault("gate.cache_ttl_minutes", 60)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval_hours", 24)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.ThrottleIntervalHours <= 0 {
		return fmt.Errorf("crawler.throttle_interval_hours must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.IntervalHours <= 0 {
		return fmt.Errorf("scheduler.interval_hours must be > 0 when the scheduler is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// HTTPTimeout returns the outbound fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ThrottleInterval returns the per-domain minimum request gap.
func (c Config) ThrottleInterval() time.Duration {
	return time.Duration(c.Crawler.ThrottleIntervalHours) * time.Hour
}

// ServerTimeout returns the per-request handler timeout.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
