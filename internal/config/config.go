package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PressWatch/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PRESSWATCH_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	natsURLEnv        = "NATS_URL"
	logLevelEnv       = "LOG_LEVEL"
)

// Database drivers accepted by the item store.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Crawl         CrawlConfig        `yaml:"crawl"`
	Notify        NotifyConfig       `yaml:"notify"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	OpenAI        OpenAIConfig       `yaml:"openai"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []domain.Source    `yaml:"sources"`
	Groups        []domain.Group     `yaml:"groups"`
}

// LoggingConfig selects the slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig describes the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig picks the item store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CrawlConfig bounds outbound crawling.
type CrawlConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	Timeout           time.Duration `yaml:"timeout"`
	SourceTimeout     time.Duration `yaml:"sourceTimeout"`
	UserAgent         string        `yaml:"userAgent"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
}

// NotifyConfig tunes the notification gate and the freshness flag.
type NotifyConfig struct {
	MaxPerRun   int           `yaml:"maxPerRun"`
	FreshWindow time.Duration `yaml:"freshWindow"`
}

// SchedulerConfig defines when crawling and notification run.
type SchedulerConfig struct {
	CrawlCron  string         `yaml:"crawlCron"`
	NotifyCron string         `yaml:"notifyCron"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
	// BodyLimit caps the article text sent for summarization, in characters.
	BodyLimit int `yaml:"bodyLimit"`
}

// Enabled reports whether summaries can be generated.
func (o OpenAIConfig) Enabled() bool {
	return o.APIKey != "" && o.Endpoint != "" && o.Model != ""
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	NATS     NATSConfig     `yaml:"nats"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// NATSConfig publishes selected items to a subject.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load reads YAML configuration from path (or PRESSWATCH_CONFIG when path is empty),
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		fileCfg, err := Parse(raw)
		if err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes a YAML document without defaults or validation.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Source looks a configured source up by id.
func (c Config) Source(id string) (domain.Source, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return domain.Source{}, false
}

// Group looks a configured group up by id.
func (c Config) Group(id string) (domain.Group, bool) {
	for _, g := range c.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return domain.Group{}, false
}

// EnabledSources drops sources switched off in configuration.
func (c Config) EnabledSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.IsEnabled() {
			out = append(out, src)
		}
	}
	return out
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Format, validation.In("text", "json")),
	); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In(DriverPostgres, DriverSQLite, DriverMemory)),
		validation.Field(&c.Database.DSN, validation.When(c.Database.Driver != DriverMemory, validation.Required)),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Addr, validation.Required),
	); err != nil {
		return fmt.Errorf("http: %w", err)
	}

	if err := validation.ValidateStruct(&c.Crawl,
		validation.Field(&c.Crawl.Concurrency, validation.Min(1)),
		validation.Field(&c.Crawl.RequestsPerSecond, validation.Min(0.0)),
	); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	if err := validation.ValidateStruct(&c.Notify,
		validation.Field(&c.Notify.MaxPerRun, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := validation.ValidateStruct(&c.Scheduler,
		validation.Field(&c.Scheduler.CrawlCron, validation.By(cronSpec)),
		validation.Field(&c.Scheduler.NotifyCron, validation.By(cronSpec)),
	); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		src := &c.Sources[i]
		if err := validateSource(src); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = struct{}{}
	}

	for i := range c.Groups {
		g := &c.Groups[i]
		if err := validation.ValidateStruct(g,
			validation.Field(&g.ID, validation.Required, validation.Match(domain.GroupIDPattern)),
		); err != nil {
			return fmt.Errorf("groups[%d]: %w", i, err)
		}
		for _, id := range g.SourceIDs {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("groups[%d]: unknown source %q", i, id)
			}
		}
	}

	return nil
}

func validateSource(src *domain.Source) error {
	if err := validation.ValidateStruct(src,
		validation.Field(&src.ID, validation.Required),
		validation.Field(&src.Name, validation.Required),
		validation.Field(&src.ListingURL, validation.Required, is.URL),
	); err != nil {
		return err
	}

	rule := &src.Rule
	return validation.ValidateStruct(rule,
		validation.Field(&rule.ItemSelector, validation.Required),
		validation.Field(&rule.TitleSelector, validation.Required),
		validation.Field(&rule.URLSelector, validation.Required),
		validation.Field(&rule.MaxItems, validation.Min(0)),
	)
}

func cronSpec(value any) error {
	spec, _ := value.(string)
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.New("must be a valid cron expression")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(natsURLEnv); v != "" {
		c.Notifications.NATS.URL = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.ShutdownTimeout > 0 {
		base.HTTP.ShutdownTimeout = override.HTTP.ShutdownTimeout
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Crawl.Concurrency > 0 {
		base.Crawl.Concurrency = override.Crawl.Concurrency
	}
	if override.Crawl.Timeout > 0 {
		base.Crawl.Timeout = override.Crawl.Timeout
	}
	if override.Crawl.SourceTimeout > 0 {
		base.Crawl.SourceTimeout = override.Crawl.SourceTimeout
	}
	if override.Crawl.UserAgent != "" {
		base.Crawl.UserAgent = override.Crawl.UserAgent
	}
	if override.Crawl.RequestsPerSecond > 0 {
		base.Crawl.RequestsPerSecond = override.Crawl.RequestsPerSecond
	}
	if override.Crawl.Burst > 0 {
		base.Crawl.Burst = override.Crawl.Burst
	}

	if override.Notify.MaxPerRun > 0 {
		base.Notify.MaxPerRun = override.Notify.MaxPerRun
	}
	if override.Notify.FreshWindow > 0 {
		base.Notify.FreshWindow = override.Notify.FreshWindow
	}

	if override.Scheduler.CrawlCron != "" {
		base.Scheduler.CrawlCron = override.Scheduler.CrawlCron
	}
	if override.Scheduler.NotifyCron != "" {
		base.Scheduler.NotifyCron = override.Scheduler.NotifyCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}
	if override.OpenAI.Temperature > 0 {
		base.OpenAI.Temperature = override.OpenAI.Temperature
	}
	if override.OpenAI.MaxTokens > 0 {
		base.OpenAI.MaxTokens = override.OpenAI.MaxTokens
	}
	if override.OpenAI.Timeout > 0 {
		base.OpenAI.Timeout = override.OpenAI.Timeout
	}
	if override.OpenAI.BodyLimit > 0 {
		base.OpenAI.BodyLimit = override.OpenAI.BodyLimit
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}
	if override.Notifications.NATS.URL != "" {
		base.Notifications.NATS.URL = override.Notifications.NATS.URL
	}
	if override.Notifications.NATS.Subject != "" {
		base.Notifications.NATS.Subject = override.Notifications.NATS.Subject
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Groups) > 0 {
		base.Groups = override.Groups
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		HTTP:     HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "presswatch.db"},
		Crawl: CrawlConfig{
			Concurrency:       4,
			Timeout:           10 * time.Second,
			SourceTimeout:     30 * time.Second,
			UserAgent:         "PressWatch/1.0",
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Notify: NotifyConfig{
			MaxPerRun:   domain.DefaultMaxPerRun,
			FreshWindow: domain.DefaultFreshWindow,
		},
		Scheduler: SchedulerConfig{
			CrawlCron:  "0 * * * *",
			NotifyCron: "*/15 * * * *",
			Timezone:   defaultTimezone,
			location:   tz,
		},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize corporate press releases for PressWatch readers.",
			Temperature:  0.2,
			MaxTokens:    600,
			Timeout:      30 * time.Second,
			BodyLimit:    8000,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
			NATS:     NATSConfig{Subject: "presswatch.items"},
		},
	}
}
