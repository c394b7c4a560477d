package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_UsesDefaults(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "")
	t.Setenv("RWREADER_API_BASE_URL", "")
	path := writeConfig(t, "token: abc\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("unexpected API base URL: %s", cfg.APIBaseURL)
	}
	if cfg.CacheTTLDuration() != 5*time.Minute {
		t.Fatalf("unexpected cache TTL: %s", cfg.CacheTTLDuration())
	}
	if cfg.ArticleCacheSize != 100 {
		t.Fatalf("unexpected article cache size: %d", cfg.ArticleCacheSize)
	}
	if cfg.ArchiveWindowDuration() != 30*24*time.Hour {
		t.Fatalf("unexpected archive window: %s", cfg.ArchiveWindowDuration())
	}
	if cfg.Display.Theme != "auto" {
		t.Fatalf("unexpected theme: %s", cfg.Display.Theme)
	}
	if !cfg.Display.ImagesEnabled() || cfg.Display.RelativeTime {
		t.Fatalf("unexpected display defaults: %+v", cfg.Display)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "")
	t.Setenv("RWREADER_API_BASE_URL", "")
	path := writeConfig(t, `
token: abc
cache_ttl: 90s
article_cache_size: 7
archive_window: 0s
display:
  theme: dark
  show_feed: true
  relative_time: true
  show_images: false
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CacheTTLDuration() != 90*time.Second {
		t.Fatalf("unexpected TTL: %s", cfg.CacheTTLDuration())
	}
	if cfg.ArticleCacheSize != 7 {
		t.Fatalf("unexpected cache size: %d", cfg.ArticleCacheSize)
	}
	if cfg.ArchiveWindowDuration() != 0 {
		t.Fatalf("expected unbounded archive window, got %s", cfg.ArchiveWindowDuration())
	}
	if cfg.Display.Theme != "dark" || !cfg.Display.ShowFeed || !cfg.Display.RelativeTime {
		t.Fatalf("unexpected display settings: %+v", cfg.Display)
	}
	if cfg.Display.ImagesEnabled() {
		t.Fatal("expected show_images: false to disable images")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "from-env")
	t.Setenv("RWREADER_API_BASE_URL", "http://localhost:9999/api/v3")
	path := writeConfig(t, "token: from-file\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Token != "from-env" {
		t.Fatalf("expected env token, got %q", cfg.Token)
	}
	if cfg.APIBaseURL != "http://localhost:9999/api/v3" {
		t.Fatalf("unexpected base URL: %s", cfg.APIBaseURL)
	}
}

func TestLoad_MissingTokenIsError(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "")
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestLoad_TokenCommand(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "")
	path := writeConfig(t, "token_command: printf 'cmd-token\\n'\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Token != "cmd-token" {
		t.Fatalf("unexpected token from command: %q", cfg.Token)
	}
}

func TestLoad_TokenCommandFailure(t *testing.T) {
	t.Setenv("READWISE_TOKEN", "")
	path := writeConfig(t, "token_command: exit 3\n")

	_, err := Load(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "token_command failed") {
		t.Fatalf("expected token command error, got %v", err)
	}
}

func TestValidate_APIBaseURLTrailingSlash(t *testing.T) {
	cfg := Config{Token: "abc", APIBaseURL: "https://readwise.io/api/v3/"}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "ttl", mutate: func(c *Config) { c.CacheTTL = "-1m" }},
		{name: "ttl garbage", mutate: func(c *Config) { c.CacheTTL = "soon" }},
		{name: "cache size", mutate: func(c *Config) { c.ArticleCacheSize = -2 }},
		{name: "theme", mutate: func(c *Config) { c.Display.Theme = "neon" }},
		{name: "timeout", mutate: func(c *Config) { c.RequestTimeout = "0s" }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Token: "abc"}
			cfg.applyDefaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
