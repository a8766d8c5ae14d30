package config

import (
	"strings"

	"github.com/aschepis/chatkit/llm"
	"github.com/aschepis/chatkit/llm/anthropic"
	"github.com/aschepis/chatkit/llm/openai"
)

// BuildRegistry constructs a provider registry from the configuration.
// Providers register unconditionally; credentials are checked lazily on
// first use, so a missing key only fails requests routed to that provider.
// Azure registers only when an endpoint is configured.
func BuildRegistry(cfg *Config) *llm.Registry {
	reg := llm.NewRegistry()

	reg.Register(llm.ProviderAnthropic, anthropic.NewClient(anthropic.Config{
		APIKey:       cfg.Anthropic.APIKey,
		BaseURL:      cfg.Anthropic.BaseURL,
		DefaultModel: cfg.Anthropic.Model,
	}))

	reg.Register(llm.ProviderOpenAI, openai.NewClient(openai.Config{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Organization: cfg.OpenAI.Organization,
		DefaultModel: cfg.OpenAI.Model,
	}))

	if cfg.Azure.Endpoint != "" {
		reg.Register(llm.ProviderAzure, openai.NewAzureClient(openai.AzureConfig{
			APIKey:       cfg.Azure.APIKey,
			Endpoint:     cfg.Azure.Endpoint,
			APIVersion:   cfg.Azure.APIVersion,
			Deployment:   cfg.Azure.Deployment,
			Deployments:  cfg.Azure.Deployments,
			DefaultModel: cfg.Azure.Model,
		}))
	}

	host := strings.TrimSuffix(cfg.Ollama.Host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	reg.Register("ollama", openai.NewCompatibleClient(host+"/v1", "ollama", cfg.Ollama.Model))

	reg.SetDefault(cfg.DefaultProvider, cfg.DefaultModel)
	return reg
}
