package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultProvider != "anthropic" || cfg.MaxSteps != 10 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if len(cfg.Middleware.Order) == 0 {
		t.Error("Expected default middleware order")
	}
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
default_provider: openai
default_model: gpt-4o
openai:
  api_key: sk-test
middleware:
  rate_limit:
    requests_per_minute: 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultProvider != "openai" || cfg.DefaultModel != "gpt-4o" {
		t.Errorf("Expected file values to win, got %+v", cfg)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("Expected api key from file, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Middleware.RateLimit.RequestsPerMinute != 5 {
		t.Errorf("Expected rpm override, got %v", cfg.Middleware.RateLimit.RequestsPerMinute)
	}
	// Untouched defaults survive the merge.
	if cfg.Middleware.RateLimit.TokensPerMinute != 100000 {
		t.Errorf("Expected default tpm preserved, got %v", cfg.Middleware.RateLimit.TokensPerMinute)
	}
	if cfg.MaxSteps != 10 {
		t.Errorf("Expected default max steps preserved, got %d", cfg.MaxSteps)
	}
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "env-key" {
		t.Errorf("Expected env override, got %q", cfg.Anthropic.APIKey)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.DefaultModel = "claude-opus-4-1"
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DefaultModel != "claude-opus-4-1" {
		t.Errorf("Expected saved model back, got %q", loaded.DefaultModel)
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := Defaults()
	reg := BuildRegistry(&cfg)
	names := reg.Names()
	if len(names) < 3 {
		t.Fatalf("Expected at least anthropic, openai, ollama registered, got %v", names)
	}
	if _, ok := reg.Provider("azure"); ok {
		t.Error("Expected azure skipped without an endpoint")
	}

	cfg.Azure.Endpoint = "https://example.openai.azure.com"
	reg = BuildRegistry(&cfg)
	if _, ok := reg.Provider("azure"); !ok {
		t.Error("Expected azure registered with an endpoint")
	}
}

func TestBuildPipeline(t *testing.T) {
	cfg := Defaults()
	pipeline, cleanup, err := BuildPipeline(&cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}
	if pipeline == nil {
		t.Fatal("Expected a pipeline")
	}
	if err := cleanup(); err != nil {
		t.Errorf("Cleanup failed: %v", err)
	}

	// Unknown names are skipped, not fatal.
	cfg.Middleware.Order = []string{"bogus", "logging"}
	if _, _, err := BuildPipeline(&cfg, zerolog.Nop()); err != nil {
		t.Errorf("Expected unknown middleware skipped, got %v", err)
	}
}
