package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBaseURL       = "https://readwise.io/api/v3"
	defaultCacheTTL         = 5 * time.Minute
	defaultArticleCacheSize = 100
	defaultArchiveWindow    = 30 * 24 * time.Hour
	defaultRequestTimeout   = 20 * time.Second
	tokenCommandTimeout     = 30 * time.Second
)

// Display holds presentation preferences. None of them affect caching.
type Display struct {
	Theme          string `yaml:"theme"`
	WordWrap       int    `yaml:"word_wrap"`
	MarkReadOnOpen bool   `yaml:"mark_read_on_open"`
	ShowFeed       bool   `yaml:"show_feed"`
	RelativeTime   bool   `yaml:"relative_time"`
	// ShowImages keeps image placeholders in articles. Unset means true.
	ShowImages *bool `yaml:"show_images"`
}

func (d Display) ImagesEnabled() bool {
	return d.ShowImages == nil || *d.ShowImages
}

// Config holds runtime settings for the CLI app.
type Config struct {
	Token            string  `yaml:"token"`
	TokenCommand     string  `yaml:"token_command"`
	APIBaseURL       string  `yaml:"api_base_url"`
	CacheTTL         string  `yaml:"cache_ttl"`
	ArticleCacheSize int     `yaml:"article_cache_size"`
	ArchiveWindow    string  `yaml:"archive_window"`
	RequestTimeout   string  `yaml:"request_timeout"`
	SnapshotPath     string  `yaml:"snapshot_path"`
	LogFile          string  `yaml:"log_file"`
	LogLevel         string  `yaml:"log_level"`
	Display          Display `yaml:"display"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "rwreader", "config.yaml")
}

func DefaultSnapshotPath() string {
	return filepath.Join(xdg.CacheHome, "rwreader", "snapshot.db")
}

func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "rwreader", "rwreader.log")
}

// Load reads the YAML file at path (the XDG default when empty), applies
// environment overrides and defaults, resolves the token and validates the
// result. A missing file is not an error as long as a token can be found
// elsewhere.
func Load(ctx context.Context, path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.ResolveToken(ctx); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("READWISE_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("RWREADER_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.CacheTTL == "" {
		c.CacheTTL = defaultCacheTTL.String()
	}
	if c.ArticleCacheSize == 0 {
		c.ArticleCacheSize = defaultArticleCacheSize
	}
	if c.ArchiveWindow == "" {
		c.ArchiveWindow = defaultArchiveWindow.String()
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = defaultRequestTimeout.String()
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = DefaultSnapshotPath()
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogPath()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Display.Theme == "" {
		c.Display.Theme = "auto"
	}
	if c.Display.WordWrap == 0 {
		c.Display.WordWrap = 100
	}
}

// ResolveToken runs TokenCommand when no token was configured directly.
// The command's stdout is used as the token with only the trailing line
// break removed.
func (c *Config) ResolveToken(ctx context.Context) error {
	if c.Token != "" || strings.TrimSpace(c.TokenCommand) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, tokenCommandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", c.TokenCommand)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("token_command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	c.Token = strings.TrimRight(stdout.String(), "\r\n")
	return nil
}

func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("a Readwise token is required (token, token_command or READWISE_TOKEN)")
	}
	if c.APIBaseURL == "" {
		return errors.New("APIBaseURL is required")
	}
	if c.APIBaseURL[len(c.APIBaseURL)-1] == '/' {
		return fmt.Errorf("APIBaseURL must not end with '/': %s", c.APIBaseURL)
	}
	if ttl, err := time.ParseDuration(c.CacheTTL); err != nil || ttl <= 0 {
		return fmt.Errorf("cache_ttl must be a positive duration: %q", c.CacheTTL)
	}
	if c.ArticleCacheSize < 1 {
		return fmt.Errorf("article_cache_size must be at least 1: %d", c.ArticleCacheSize)
	}
	if w, err := time.ParseDuration(c.ArchiveWindow); err != nil || w < 0 {
		return fmt.Errorf("archive_window must be a non-negative duration: %q", c.ArchiveWindow)
	}
	if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
		return fmt.Errorf("request_timeout must be a positive duration: %q", c.RequestTimeout)
	}
	switch c.Display.Theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("display.theme must be auto, dark or light: %s", c.Display.Theme)
	}
	return nil
}

func (c Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return defaultCacheTTL
	}
	return d
}

func (c Config) ArchiveWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.ArchiveWindow)
	if err != nil || d < 0 {
		return defaultArchiveWindow
	}
	return d
}

func (c Config) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}
