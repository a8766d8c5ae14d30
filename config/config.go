// Package config loads chatkit configuration from YAML, layering a config
// file over built-in defaults and applying environment variable overrides
// for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AnthropicConfig holds settings for the Anthropic provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// OpenAIConfig holds settings for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Model        string `yaml:"model,omitempty"`
}

// AzureConfig holds settings for Azure OpenAI deployments.
type AzureConfig struct {
	APIKey      string            `yaml:"api_key,omitempty"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	APIVersion  string            `yaml:"api_version,omitempty"`
	Deployment  string            `yaml:"deployment,omitempty"`  // fallback deployment name
	Deployments map[string]string `yaml:"deployments,omitempty"` // model name -> deployment name
	Model       string            `yaml:"model,omitempty"`
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"` // default: "http://localhost:11434"
	Model string `yaml:"model,omitempty"`
}

// RateLimitConfig tunes the rate limiting middleware.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute,omitempty"`
	TokensPerMinute   float64 `yaml:"tokens_per_minute,omitempty"`
}

// CacheConfig tunes the response cache middleware.
type CacheConfig struct {
	TTLSeconds int    `yaml:"ttl_seconds,omitempty"`
	Path       string `yaml:"path,omitempty"` // SQLite file; empty means in-memory
}

// MiddlewareConfig selects and tunes the pipeline. Order lists middleware
// names outermost first; unknown names are skipped with a warning.
type MiddlewareConfig struct {
	Order     []string        `yaml:"order,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`
}

// MCPServerConfig describes an MCP server to launch over stdio.
type MCPServerConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Env     []string `yaml:"env,omitempty"`
}

// Config is the root chatkit configuration.
type Config struct {
	DefaultProvider string `yaml:"default_provider,omitempty"`
	DefaultModel    string `yaml:"default_model,omitempty"`
	MaxSteps        int    `yaml:"max_steps,omitempty"`
	MaxTokens       int    `yaml:"max_tokens,omitempty"`

	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	Azure     AzureConfig     `yaml:"azure,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`

	Middleware MiddlewareConfig            `yaml:"middleware,omitempty"`
	MCPServers map[string]*MCPServerConfig `yaml:"mcp_servers,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DefaultProvider: "anthropic",
		DefaultModel:    "claude-sonnet-4-5",
		MaxSteps:        10,
		Ollama: OllamaConfig{
			Host: "http://localhost:11434",
		},
		Middleware: MiddlewareConfig{
			Order: []string{"logging", "guardrails", "rate_limit", "cache"},
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				TokensPerMinute:   100000,
			},
			Cache: CacheConfig{
				TTLSeconds: 300,
			},
		},
	}
}

// Path returns the default config file path. Can be overridden via the
// CHATKIT_CONFIG environment variable.
func Path() string {
	if envPath := os.Getenv("CHATKIT_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.chatkit/config.yaml"
	}
	return filepath.Join(homeDir, ".chatkit", "config.yaml")
}

// Load reads the config file at path, merges it over the defaults, and
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
		}
		if err := mergo.Merge(&cfg, fileConfig, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Save writes the configuration to the specified path, creating the
// directory if needed.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvOverrides lets credentials and endpoints come from the
// environment without touching the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_ORG_ID"); v != "" {
		cfg.OpenAI.Organization = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" {
		cfg.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Azure.Endpoint = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
