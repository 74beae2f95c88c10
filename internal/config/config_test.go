package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("RAINDROP_TOKEN", "")
	t.Setenv("BEATCHECK_DB_PATH", "")

	cfg, err := loadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("loadFrom returned error: %v", err)
	}
	if cfg.Model != defaultModel {
		t.Errorf("Model = %q, want default", cfg.Model)
	}
	if cfg.Retention() != defaultRetentionDays {
		t.Errorf("Retention() = %d, want %d", cfg.Retention(), defaultRetentionDays)
	}
	if cfg.QuickTags["t"] != "twit" || cfg.QuickTags["i"] != "im" || cfg.QuickTags["m"] != "mbw" {
		t.Errorf("QuickTags = %v, want default mapping", cfg.QuickTags)
	}
	if cfg.DBPath == "" {
		t.Errorf("expected a default DBPath")
	}
}

func TestLoadFrom_FileValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("RAINDROP_TOKEN", "")
	t.Setenv("BEATCHECK_DB_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
anthropic_api_key: sk-file
raindrop_token: rd-file
db_path: /tmp/test.db
retention_days: 7
quick_tags:
  x: custom
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom returned error: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-file" {
		t.Errorf("AnthropicAPIKey = %q", cfg.AnthropicAPIKey)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Retention() != 7 {
		t.Errorf("Retention() = %d", cfg.Retention())
	}
	if cfg.QuickTags["x"] != "custom" {
		t.Errorf("QuickTags = %v", cfg.QuickTags)
	}
}

func TestLoadFrom_ZeroRetentionDisablesPruning(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("RAINDROP_TOKEN", "")
	t.Setenv("BEATCHECK_DB_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retention_days: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom returned error: %v", err)
	}
	if cfg.Retention() != 0 {
		t.Errorf("Retention() = %d, want explicit 0 to stick", cfg.Retention())
	}
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic_api_key: sk-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("RAINDROP_TOKEN", "rd-env")
	t.Setenv("BEATCHECK_DB_PATH", "/tmp/env.db")

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("loadFrom returned error: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-env" {
		t.Errorf("AnthropicAPIKey = %q, want env override", cfg.AnthropicAPIKey)
	}
	if cfg.RaindropToken != "rd-env" {
		t.Errorf("RaindropToken = %q", cfg.RaindropToken)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		AnthropicBaseURL: defaultAnthropicBaseURL,
		RaindropBaseURL:  defaultRaindropBaseURL,
		DBPath:           "x.db",
	}

	if err := base.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := base
	bad.AnthropicBaseURL = "https://api.anthropic.com/"
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "must not end with") {
		t.Errorf("trailing slash accepted: %v", err)
	}

	bad = base
	neg := -1
	bad.RetentionDays = &neg
	if err := bad.Validate(); err == nil {
		t.Errorf("negative retention accepted")
	}

	bad = base
	bad.QuickTags = map[string]string{"ab": "two"}
	if err := bad.Validate(); err == nil {
		t.Errorf("multi-char quick tag key accepted")
	}
}
