package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultRaindropBaseURL  = "https://api.raindrop.io"
	defaultModel            = "claude-3-5-haiku-20241022"
	defaultRetentionDays    = 30
)

// Config holds runtime settings, loaded from a yaml file with environment
// overrides for secrets and paths.
type Config struct {
	AnthropicAPIKey  string            `yaml:"anthropic_api_key"`
	AnthropicBaseURL string            `yaml:"anthropic_base_url"`
	Model            string            `yaml:"model"`
	RaindropToken    string            `yaml:"raindrop_token"`
	RaindropBaseURL  string            `yaml:"raindrop_base_url"`
	DBPath           string            `yaml:"db_path"`
	LogPath          string            `yaml:"log_path"`
	QuickTags        map[string]string `yaml:"quick_tags"`

	// RetentionDays is a pointer so an explicit 0 (pruning off) survives
	// defaulting; only an absent key gets the default.
	RetentionDays *int `yaml:"retention_days"`
}

// Retention returns the effective retention window in days; 0 disables
// pruning.
func (c Config) Retention() int {
	if c.RetentionDays == nil {
		return defaultRetentionDays
	}
	return *c.RetentionDays
}

// Load reads the config file, fills defaults and applies env overrides.
// A missing file is not an error; everything has a usable default except the
// API credentials, which the app checks at point of use.
func Load() (Config, error) {
	return loadFrom(Path())
}

// Path returns the config file location: $BEATCHECK_CONFIG if set, otherwise
// ~/.config/beatcheck/config.yaml.
func Path() string {
	if p := os.Getenv("BEATCHECK_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "beatcheck", "config.yaml")
}

func loadFrom(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("RAINDROP_TOKEN"); v != "" {
		cfg.RaindropToken = v
	}
	if v := os.Getenv("BEATCHECK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AnthropicBaseURL == "" {
		cfg.AnthropicBaseURL = defaultAnthropicBaseURL
	}
	if cfg.RaindropBaseURL == "" {
		cfg.RaindropBaseURL = defaultRaindropBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.RetentionDays == nil {
		days := defaultRetentionDays
		cfg.RetentionDays = &days
	}
	if cfg.QuickTags == nil {
		cfg.QuickTags = map[string]string{
			"t": "twit",
			"i": "im",
			"m": "mbw",
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "beatcheck.db"
	}
	return filepath.Join(home, ".local", "share", "beatcheck", "beatcheck.db")
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if strings.HasSuffix(c.AnthropicBaseURL, "/") {
		return fmt.Errorf("anthropic_base_url must not end with '/': %s", c.AnthropicBaseURL)
	}
	if strings.HasSuffix(c.RaindropBaseURL, "/") {
		return fmt.Errorf("raindrop_base_url must not end with '/': %s", c.RaindropBaseURL)
	}
	if c.RetentionDays != nil && *c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative: %d", *c.RetentionDays)
	}
	for key := range c.QuickTags {
		if len(key) != 1 {
			return fmt.Errorf("quick_tags keys must be single characters: %q", key)
		}
	}
	return nil
}
