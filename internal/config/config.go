// Package config loads service settings from YAML, .env files and the
// environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/reactions/internal/curated"
)

// Config is the service configuration
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogDir   string `yaml:"log_dir"` // "-" logs to stderr
	DataDir  string `yaml:"data_dir"`

	Cache  CacheConfig  `yaml:"cache"`
	Keys   Keys         `yaml:"keys"`
	Models ModelConfig  `yaml:"models"`
	Search SearchConfig `yaml:"search"`
	TTL    TTLConfig    `yaml:"ttl"`

	// Authors is the curated follow list. Empty uses curated.DefaultAuthors.
	Authors []curated.Author `yaml:"authors,omitempty"`
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	Backend  string `yaml:"backend"` // memory, sqlite or redis
	RedisURL string `yaml:"redis_url,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"` // sqlite file; empty uses DataDir
}

// Keys holds provider credentials. Never logged.
type Keys struct {
	SerpAPI            string `yaml:"serpapi,omitempty"`
	RedditClientID     string `yaml:"reddit_client_id,omitempty"`
	RedditClientSecret string `yaml:"reddit_client_secret,omitempty"`
	RedditUserAgent    string `yaml:"reddit_user_agent,omitempty"`
	TwitterBearer      string `yaml:"twitter_bearer,omitempty"`
	OpenAI             string `yaml:"openai,omitempty"`
	Gemini             string `yaml:"gemini,omitempty"`
	Anthropic          string `yaml:"anthropic,omitempty"`
}

// ModelConfig names the generation models
type ModelConfig struct {
	OpenAI    string `yaml:"openai"`
	Gemini    string `yaml:"gemini"`
	GeminiTTS string `yaml:"gemini_tts"`
	Anthropic string `yaml:"anthropic,omitempty"`
}

// SearchConfig tunes the fan-out
type SearchConfig struct {
	ProviderTimeout string `yaml:"provider_timeout"`
	RedditLimit     int    `yaml:"reddit_limit"`
	WebResults      int    `yaml:"web_results"`
	Twitter         bool   `yaml:"twitter"`
	TwitterLimit    int    `yaml:"twitter_limit"`
	Classify        bool   `yaml:"classify"`
}

// TTLConfig holds cache lifetimes as Go duration strings
type TTLConfig struct {
	Aggregate     string `yaml:"aggregate"`
	Commentary    string `yaml:"commentary"`
	Curated       string `yaml:"curated"`
	SweepInterval string `yaml:"sweep_interval"`
	WarmFeeds     bool   `yaml:"warm_feeds"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:     8080,
		LogLevel: "info",
		LogDir:   "-",
		DataDir:  filepath.Join(xdg.DataHome, "reactions"),
		Cache:    CacheConfig{Backend: "memory"},
		Keys:     Keys{RedditUserAgent: "MediaReactionFinder/1.0"},
		Models: ModelConfig{
			OpenAI:    "gpt-4o",
			Gemini:    "gemini-2.5-flash",
			GeminiTTS: "gemini-2.5-flash-preview-tts",
		},
		Search: SearchConfig{
			ProviderTimeout: "30s",
			RedditLimit:     5,
			WebResults:      10,
			Twitter:         true,
			TwitterLimit:    10,
			Classify:        true,
		},
		TTL: TTLConfig{
			Aggregate:     "24h",
			Commentary:    "72h",
			Curated:       "72h",
			SweepInterval: "15m",
		},
	}
}

// ConfigPath returns the default config file location
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "reactions", "config.yaml")
}

// LoadDotEnv loads .env.local then .env from dir. Variables already set in
// the environment are never overwritten, so .env.local wins over .env.
func LoadDotEnv(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// Load reads config from path (default ConfigPath), falling back to
// defaults when the file does not exist, then applies the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600) // Restrictive permissions for API keys
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.Keys.SerpAPI, "SERPAPI_API_KEY")
	setString(&c.Keys.RedditClientID, "REDDIT_CLIENT_ID")
	setString(&c.Keys.RedditClientSecret, "REDDIT_CLIENT_SECRET")
	setString(&c.Keys.RedditUserAgent, "REDDIT_USER_AGENT")
	setString(&c.Keys.TwitterBearer, "TWITTER_BEARER_TOKEN")
	setString(&c.Keys.OpenAI, "OPENAI_API_KEY")
	setString(&c.Keys.Gemini, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	setString(&c.Keys.Anthropic, "ANTHROPIC_API_KEY")
	setString(&c.Cache.Backend, "REACTIONS_CACHE_BACKEND")
	setString(&c.Cache.RedisURL, "REDIS_URL")
	setString(&c.LogLevel, "REACTIONS_LOG_LEVEL")

	if v := os.Getenv("REACTIONS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend redis needs redis_url or REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (valid: memory, sqlite, redis)", c.Cache.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for name, s := range map[string]string{
		"search.provider_timeout": c.Search.ProviderTimeout,
		"ttl.aggregate":           c.TTL.Aggregate,
		"ttl.commentary":          c.TTL.Commentary,
		"ttl.curated":             c.TTL.Curated,
		"ttl.sweep_interval":      c.TTL.SweepInterval,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i, a := range c.Authors {
		if a.Name == "" || a.FeedURL == "" {
			return fmt.Errorf("author %d: name and feed_url are required", i)
		}
	}
	return nil
}

// DBPath returns the sqlite database location
func (c *Config) DBPath() string {
	if c.Cache.DBPath != "" {
		return c.Cache.DBPath
	}
	return filepath.Join(c.DataDir, "reactions.db")
}

// EventsDir returns where the JSONL event log is written
func (c *Config) EventsDir() string {
	return filepath.Join(c.DataDir, "events")
}

// FollowedAuthors returns the configured authors or the built-in list
func (c *Config) FollowedAuthors() []curated.Author {
	if len(c.Authors) > 0 {
		return c.Authors
	}
	return curated.DefaultAuthors
}

// ProviderTimeout returns the per-provider fan-out deadline
func (c *Config) ProviderTimeout() time.Duration {
	return durationOr(c.Search.ProviderTimeout, 30*time.Second)
}

// AggregateTTL returns the aggregation cache lifetime
func (c *Config) AggregateTTL() time.Duration {
	return durationOr(c.TTL.Aggregate, 24*time.Hour)
}

// CommentaryTTL returns the commentary cache lifetime
func (c *Config) CommentaryTTL() time.Duration {
	return durationOr(c.TTL.Commentary, 72*time.Hour)
}

// CuratedTTL returns the curated feed cache lifetime
func (c *Config) CuratedTTL() time.Duration {
	return durationOr(c.TTL.Curated, 72*time.Hour)
}

// SweepInterval returns the period between cache sweeps
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.TTL.SweepInterval, 15*time.Minute)
}

// ProviderStatus reports which credentials are present, for logging
func (c *Config) ProviderStatus() map[string]bool {
	return map[string]bool{
		"serpapi": c.Keys.SerpAPI != "",
		"reddit":  c.Keys.RedditClientID != "" && c.Keys.RedditClientSecret != "",
		"twitter": c.Keys.TwitterBearer != "",
		"openai":  c.Keys.OpenAI != "",
		"gemini":  c.Keys.Gemini != "",
		"claude":  c.Keys.Anthropic != "",
	}
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
