package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
logging:
  development: false
crawler:
  workers: 6
  user_agent: openroles-bot
  respect_robots: false
  throttle_interval_hours: 6
  requests_per_second: 1.5
  snapshot_pages: true
http:
  timeout_seconds: 45
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
db:
  dsn: postgres://crawler@localhost/crawler
redis:
  url: redis://localhost:6379/0
storage:
  gcs_bucket: snapshots
pubsub:
  project_id: openroles
  topic_name: crawl-summaries
gate:
  rate_limit: 10
  rate_window_hours: 1
scheduler:
  enabled: true
  interval_hours: 12
rules:
  platforms:
    - name: lever
      hosts: ["lever.co"]
      selectors: [".posting"]
  title:
    levels:
      - label: Principal
        keywords: ["principal"]
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.Workers != 6 || cfg.Crawler.RespectRobots {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.ThrottleInterval() != 6*time.Hour {
		t.Fatalf("expected 6h throttle interval, got %v", cfg.ThrottleInterval())
	}
	if cfg.HTTPTimeout() != 45*time.Second {
		t.Fatalf("expected 45s http timeout, got %v", cfg.HTTPTimeout())
	}
	if cfg.DB.DSN == "" || cfg.Redis.URL == "" {
		t.Fatalf("expected db and redis settings to load")
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.IntervalHours != 12 {
		t.Fatalf("expected scheduler overrides: %+v", cfg.Scheduler)
	}
	if len(cfg.Rules.Platforms) != 1 || cfg.Rules.Platforms[0].Name != "lever" {
		t.Fatalf("expected platform rules to load: %+v", cfg.Rules.Platforms)
	}
	if len(cfg.Rules.Title.Levels) != 1 || cfg.Rules.Title.Levels[0].Label != "Principal" {
		t.Fatalf("expected title rules to load: %+v", cfg.Rules.Title.Levels)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.ThrottleIntervalHours != 12 {
		t.Fatalf("expected default 12h throttle, got %d", cfg.Crawler.ThrottleIntervalHours)
	}
	if cfg.Gate.RateLimit != 3 || cfg.Gate.RateWindowHours != 24 {
		t.Fatalf("expected default gate window: %+v", cfg.Gate)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Crawler: CrawlerConfig{Workers: 1, ThrottleIntervalHours: 12},
		HTTP:    HTTPConfig{TimeoutSeconds: 10},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Crawler.Workers = 0
				return c
			}(),
			want: "crawler.workers",
		},
		{
			name: "invalid throttle interval",
			cfg: func() Config {
				c := base
				c.Crawler.ThrottleIntervalHours = 0
				return c
			}(),
			want: "crawler.throttle_interval_hours",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.TimeoutSeconds = 0
				return c
			}(),
			want: "http.timeout_seconds",
		},
		{
			name: "headless missing max parallel",
			cfg: func() Config {
				c := base
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
				return c
			}(),
			want: "headless.max_parallel",
		},
		{
			name: "pubsub missing project",
			cfg: func() Config {
				c := base
				c.PubSub.TopicName = "summaries"
				return c
			}(),
			want: "pubsub.project_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
