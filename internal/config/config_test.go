package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable ApplyEnv reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERPAPI_API_KEY", "REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USER_AGENT",
		"TWITTER_BEARER_TOKEN", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ANTHROPIC_API_KEY",
		"REACTIONS_CACHE_BACKEND", "REDIS_URL", "REACTIONS_PORT", "REACTIONS_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Cache.Backend != "memory" {
		t.Errorf("unexpected defaults: port=%d backend=%s", cfg.Port, cfg.Cache.Backend)
	}
	if cfg.ProviderTimeout() != 30*time.Second {
		t.Errorf("provider timeout = %v", cfg.ProviderTimeout())
	}
	if cfg.AggregateTTL() != 24*time.Hour || cfg.CommentaryTTL() != 72*time.Hour || cfg.CuratedTTL() != 72*time.Hour {
		t.Errorf("unexpected ttls: %v %v %v", cfg.AggregateTTL(), cfg.CommentaryTTL(), cfg.CuratedTTL())
	}
	if cfg.SweepInterval() != 15*time.Minute {
		t.Errorf("sweep interval = %v", cfg.SweepInterval())
	}
	if cfg.Search.RedditLimit != 5 || cfg.Search.WebResults != 10 || cfg.Search.TwitterLimit != 10 {
		t.Errorf("unexpected search tunables: %+v", cfg.Search)
	}
	if len(cfg.FollowedAuthors()) == 0 {
		t.Error("expected built-in authors")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `port: 9000
cache:
  backend: sqlite
  db_path: /tmp/r.db
search:
  provider_timeout: 5s
  reddit_limit: 3
ttl:
  aggregate: 1h
authors:
  - name: Test Author
    feed_url: https://example.com/feed
    publication: Example
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.Cache.Backend != "sqlite" || cfg.DBPath() != "/tmp/r.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ProviderTimeout() != 5*time.Second || cfg.Search.RedditLimit != 3 {
		t.Errorf("search values not applied: %+v", cfg.Search)
	}
	if cfg.AggregateTTL() != time.Hour {
		t.Errorf("aggregate ttl = %v", cfg.AggregateTTL())
	}
	// unset keys keep their defaults
	if cfg.CommentaryTTL() != 72*time.Hour || cfg.Search.WebResults != 10 {
		t.Error("defaults lost for unset keys")
	}
	authors := cfg.FollowedAuthors()
	if len(authors) != 1 || authors[0].Name != "Test Author" {
		t.Errorf("authors = %+v", authors)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("keys:\n  serpapi: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERPAPI_API_KEY", "from-env")
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("REACTIONS_PORT", "7000")
	t.Setenv("REACTIONS_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keys.SerpAPI != "from-env" {
		t.Errorf("serpapi key = %q", cfg.Keys.SerpAPI)
	}
	if cfg.Keys.Gemini != "google" {
		t.Errorf("GOOGLE_API_KEY should fill the gemini key, got %q", cfg.Keys.Gemini)
	}
	if cfg.Port != 7000 || cfg.Cache.Backend != "redis" {
		t.Errorf("env overrides not applied: port=%d backend=%s", cfg.Port, cfg.Cache.Backend)
	}
	status := cfg.ProviderStatus()
	if !status["serpapi"] || !status["gemini"] || status["reddit"] {
		t.Errorf("provider status = %v", status)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backend":  "cache:\n  backend: memcached\n",
		"redis":    "cache:\n  backend: redis\n",
		"duration": "ttl:\n  aggregate: forever\n",
		"author":   "authors:\n  - name: No Feed\n",
		"yaml":     "port: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Port = 9100
	cfg.TTL.Curated = "48h"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Port != 9100 || loaded.CuratedTTL() != 48*time.Hour {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoadDotEnvKeepsExistingEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REACTIONS_TEST_A=env\nREACTIONS_TEST_B=env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("REACTIONS_TEST_A=local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REACTIONS_TEST_B", "process")
	t.Setenv("REACTIONS_TEST_A", "")
	os.Unsetenv("REACTIONS_TEST_A")

	LoadDotEnv(dir)

	if got := os.Getenv("REACTIONS_TEST_A"); got != "local" {
		t.Errorf(".env.local should win over .env, got %q", got)
	}
	if got := os.Getenv("REACTIONS_TEST_B"); got != "process" {
		t.Errorf("process env should win, got %q", got)
	}
}
