package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: debug
database:
  driver: memory
crawl:
  concurrency: 2
  timeout: 5s
notify:
  maxPerRun: 5
  freshWindow: 24h
scheduler:
  crawlCron: "*/30 * * * *"
sources:
  - id: example-corp
    name: Example Corp.
    listingUrl: https://example.com/press
    rule:
      type: simpleList
      itemSelector: ul.news > li
      titleSelector: .title
      urlSelector: a
      dateSelector: .date
      maxItems: 20
  - id: other
    name: Other Inc.
    listingUrl: https://other.example.com/news
    enabled: false
    rule:
      itemSelector: article
      titleSelector: h2
      urlSelector: a
groups:
  - id: default
    name: Default
    sourceIds: [example-corp, other]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presswatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Crawl.Concurrency != 2 || cfg.Crawl.Timeout != 5*time.Second {
		t.Fatalf("unexpected crawl config: %+v", cfg.Crawl)
	}
	if cfg.Crawl.UserAgent != "PressWatch/1.0" {
		t.Fatalf("expected default user agent to survive merge, got %q", cfg.Crawl.UserAgent)
	}
	if cfg.Notify.MaxPerRun != 5 || cfg.Notify.FreshWindow != 24*time.Hour {
		t.Fatalf("unexpected notify config: %+v", cfg.Notify)
	}
	if cfg.Scheduler.CrawlCron != "*/30 * * * *" || cfg.Scheduler.NotifyCron != "*/15 * * * *" {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Location() == nil {
		t.Fatalf("expected bound location")
	}

	src, ok := cfg.Source("example-corp")
	if !ok || src.Rule.MaxItems != 20 || src.Rule.DateSelector != ".date" {
		t.Fatalf("unexpected source: %+v", src)
	}
	if len(cfg.EnabledSources()) != 1 {
		t.Fatalf("expected disabled source to be filtered, got %d", len(cfg.EnabledSources()))
	}
	if g, ok := cfg.Group("default"); !ok || len(g.SourceIDs) != 2 {
		t.Fatalf("unexpected group: %+v", g)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(databaseDriverEnv, "memory")
	t.Setenv(natsURLEnv, "nats://127.0.0.1:4222")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" || !cfg.OpenAI.Enabled() {
		t.Fatalf("expected api key override, got %+v", cfg.OpenAI)
	}
	if cfg.Notifications.NATS.URL != "nats://127.0.0.1:4222" {
		t.Fatalf("expected nats override, got %q", cfg.Notifications.NATS.URL)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "database",
		},
		{
			name:    "missing item selector",
			mutate:  func(c *Config) { c.Sources[0].Rule.ItemSelector = "" },
			wantErr: "sources[0]",
		},
		{
			name:    "negative max items",
			mutate:  func(c *Config) { c.Sources[0].Rule.MaxItems = -1 },
			wantErr: "sources[0]",
		},
		{
			name:    "duplicate source",
			mutate:  func(c *Config) { c.Sources[1].ID = c.Sources[0].ID },
			wantErr: "duplicate",
		},
		{
			name:    "unknown member",
			mutate:  func(c *Config) { c.Groups[0].SourceIDs = append(c.Groups[0].SourceIDs, "ghost") },
			wantErr: "unknown source",
		},
		{
			name:    "group id with subject separator",
			mutate:  func(c *Config) { c.Groups[0].ID = "a.b" },
			wantErr: "groups[0]",
		},
		{
			name:    "group id with wildcard",
			mutate:  func(c *Config) { c.Groups[0].ID = "news>" },
			wantErr: "groups[0]",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Scheduler.NotifyCron = "every minute" },
			wantErr: "scheduler",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fileCfg, err := Parse([]byte(sampleYAML))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			cfg := mergeConfig(defaultConfig(), fileCfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("baseline config invalid: %v", err)
			}

			tc.mutate(&cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
