package openai

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/chatkit/llm"
)

const defaultAzureAPIVersion = "2024-06-01"

// AzureConfig holds connection settings for an Azure OpenAI resource.
// Azure addresses models by deployment name rather than model id, so the
// config may carry a per-model deployment map or a single deployment that
// serves every request.
type AzureConfig struct {
	APIKey       string
	Endpoint     string // https://<resource>.openai.azure.com
	APIVersion   string // defaults to 2024-06-01
	Deployment   string // used when Deployments has no entry for the model
	Deployments  map[string]string
	DefaultModel string
}

// NewAzureClient creates a provider for Azure OpenAI. It is the same client
// with a composed model resolver; no separate implementation is needed
// because the wire protocol is identical.
func NewAzureClient(cfg AzureConfig) *Client {
	c := &Client{
		cfg: Config{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.DefaultModel,
		},
	}
	c.resolveModel = func(model string) string {
		if name, ok := cfg.Deployments[model]; ok {
			return name
		}
		if cfg.Deployment != "" {
			return cfg.Deployment
		}
		return model
	}
	c.buildSDK = func() (*openai.Client, error) {
		if cfg.APIKey == "" {
			return nil, llm.NewConfigurationError("azure openai api key is required")
		}
		if cfg.Endpoint == "" {
			return nil, llm.NewConfigurationError("azure openai endpoint is required")
		}
		sdkCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		sdkCfg.APIVersion = cfg.APIVersion
		if sdkCfg.APIVersion == "" {
			sdkCfg.APIVersion = defaultAzureAPIVersion
		}
		return openai.NewClientWithConfig(sdkCfg), nil
	}
	return c
}
