package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/newspulse/pkg/hotness"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Filter   FilterConfig   `yaml:"filter"`
	Topics   TopicsConfig   `yaml:"topics"`
	Summary  SummaryConfig  `yaml:"summary"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ScheduleConfig configures refresh and alert intervals.
type ScheduleConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
	AlertInterval   string `yaml:"alert_interval"`
}

// ParseRefreshInterval returns the refresh interval as time.Duration.
func (s ScheduleConfig) ParseRefreshInterval() time.Duration {
	d, err := time.ParseDuration(s.RefreshInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ParseAlertInterval returns the alert interval as time.Duration.
func (s ScheduleConfig) ParseAlertInterval() time.Duration {
	d, err := time.ParseDuration(s.AlertInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SourcesConfig holds configuration for all story sources.
type SourcesConfig struct {
	Concurrency int              `yaml:"concurrency"` // sources fetched at once per refresh
	HackerNews  HackerNewsConfig `yaml:"hackernews"`
	NewsAPI     NewsAPIConfig    `yaml:"newsapi"`
	RSS         RSSConfig        `yaml:"rss"`
}

// HackerNewsConfig for the Hacker News collector.
type HackerNewsConfig struct {
	Enabled     bool    `yaml:"enabled"`
	List        string  `yaml:"list"` // top, new, best, ask, show
	Limit       int     `yaml:"limit"`
	Concurrency int     `yaml:"concurrency"`
	Rate        float64 `yaml:"rate"` // item requests per second, 0 = unlimited
}

// NewsAPIConfig for the newsapi.org headlines collector.
type NewsAPIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Country  string `yaml:"country"`
	Category string `yaml:"category"`
	PageSize int    `yaml:"page_size"`
}

// RSSConfig for the RSS feed collector.
type RSSConfig struct {
	Enabled bool       `yaml:"enabled"`
	MaxAge  string     `yaml:"max_age"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// ParseMaxAge returns the entry age cutoff, or 0 to keep everything.
func (r RSSConfig) ParseMaxAge() time.Duration {
	d, err := time.ParseDuration(r.MaxAge)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FilterConfig configures keyword filtering of fetched stories.
type FilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// TopicsConfig configures trending topic extraction.
type TopicsConfig struct {
	Limit int `yaml:"limit"`
}

// SummaryConfig configures optional AI summaries.
type SummaryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Provider   string `yaml:"provider"` // "openai" or "anthropic"
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`    // custom endpoint (optional)
	MaxContent int    `yaml:"max_content"` // article runes sent to the model
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	MinLevel string        `yaml:"min_level"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	Webhook  WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Schedule: ScheduleConfig{
			RefreshInterval: "10m",
			AlertInterval:   "10m",
		},
		Sources: SourcesConfig{
			Concurrency: 4,
			HackerNews: HackerNewsConfig{
				Enabled:     true,
				List:        "top",
				Limit:       30,
				Concurrency: 10,
				Rate:        30,
			},
			NewsAPI: NewsAPIConfig{
				Enabled:  false,
				Country:  "us",
				Category: "technology",
				PageSize: 30,
			},
			RSS: RSSConfig{
				Enabled: false,
				MaxAge:  "48h",
				Feeds: []FeedItem{
					{Name: "Lobsters", URL: "https://lobste.rs/rss"},
					{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/technology-lab"},
					{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml"},
				},
			},
		},
		Topics: TopicsConfig{Limit: 15},
		Summary: SummaryConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			MaxContent: 4000,
		},
		Alerts: AlertsConfig{MinLevel: string(hotness.LevelFire)},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if _, err := hotness.ParseLevel(c.Alerts.MinLevel); err != nil {
		errs = append(errs, fmt.Errorf("alerts.min_level: %w", err))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Summary.Enabled && c.Summary.APIKey == "" {
		errs = append(errs, errors.New("summary.api_key: required when summaries are enabled"))
	}
	for i, f := range c.Sources.RSS.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("sources.rss.feeds[%d]: url is required", i))
		}
	}
	return errors.Join(errs...)
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEWSPULSE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NEWSAPI_KEY"); v != "" {
		cfg.Sources.NewsAPI.APIKey = v
		cfg.Sources.NewsAPI.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Enabled = true
		cfg.Summary.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Summary.APIKey = v
		cfg.Summary.Enabled = true
		cfg.Summary.Provider = "anthropic"
		if cfg.Summary.Model == "gpt-4o-mini" {
			cfg.Summary.Model = ""
		}
	}
}
