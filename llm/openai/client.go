package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/chatkit/llm"
)

// Config holds connection settings for an OpenAI-style endpoint.
type Config struct {
	APIKey       string
	BaseURL      string // empty means the default OpenAI endpoint
	Organization string
	DefaultModel string // used when the request omits a model
}

// Client implements llm.Provider for OpenAI's chat completions API.
// The underlying SDK client is built lazily on first use so that a
// misconfigured provider can be registered without failing until called.
type Client struct {
	cfg            Config
	apiKeyOptional bool
	// resolveModel maps a requested model to what goes on the wire.
	// The Azure variant overrides this to map models to deployment names.
	resolveModel func(string) string
	// buildSDK overrides SDK client construction (Azure uses its own
	// config shape). Nil means the standard OpenAI construction.
	buildSDK func() (*openai.Client, error)

	mu     sync.Mutex
	client *openai.Client
}

var _ llm.Provider = (*Client)(nil)

// NewClient creates a provider for the OpenAI API.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// ensureClient builds the SDK client on first use, validating credentials.
func (c *Client) ensureClient() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.buildSDK != nil {
		client, err := c.buildSDK()
		if err != nil {
			return nil, err
		}
		c.client = client
		return c.client, nil
	}
	if c.cfg.APIKey == "" && !c.apiKeyOptional {
		return nil, llm.NewConfigurationError("openai api key is required")
	}

	sdkCfg := openai.DefaultConfig(c.cfg.APIKey)
	if c.cfg.BaseURL != "" {
		sdkCfg.BaseURL = c.cfg.BaseURL
	}
	if c.cfg.Organization != "" {
		sdkCfg.OrgID = c.cfg.Organization
	}
	c.client = openai.NewClientWithConfig(sdkCfg)
	return c.client, nil
}

func (c *Client) buildRequest(req *llm.Request) (openai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}
	if model == "" {
		return openai.ChatCompletionRequest{}, llm.NewConfigurationError("model is required")
	}
	if c.resolveModel != nil {
		model = c.resolveModel(model)
	}

	msgs, err := ToChatMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ToChatTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	return chatReq, nil
}

// Generate implements llm.Provider.Generate.
func (c *Client) Generate(ctx context.Context, req *llm.Request) (*llm.GenerateResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	client, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewRequestError("no choices in response", 0, nil)
	}

	choice := resp.Choices[0]
	result := &llm.GenerateResult{
		Content:      choice.Message.Content,
		FinishReason: finishReason(choice.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, FromToolCall(call))
	}
	return result, nil
}

// Stream implements llm.Provider.Stream.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	client, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	chatReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	sdkStream, err := client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertAPIError(err)
	}
	return newStream(ctx, sdkStream), nil
}

func finishReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonToolCalls:
		return "tool_calls"
	case openai.FinishReasonLength:
		return "length"
	default:
		return "stop"
	}
}

// convertAPIError maps OpenAI SDK errors into llm.Error kinds.
func convertAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		// Network-level failure, not an API response
		return llm.NewTransportError("openai request failed", err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.Error{
			Kind:       llm.KindConfiguration,
			Message:    fmt.Sprintf("openai auth rejected: %s", apiErr.Message),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	case http.StatusTooManyRequests:
		return &llm.Error{
			Kind:       llm.KindTransport,
			Message:    fmt.Sprintf("openai rate limit: %s", apiErr.Message),
			Retryable:  true,
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &llm.Error{
			Kind:       llm.KindTransport,
			Message:    fmt.Sprintf("openai server error: %s", apiErr.Message),
			Retryable:  true,
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	default:
		return &llm.Error{
			Kind:       llm.KindRequest,
			Message:    fmt.Sprintf("openai rejected request: %s", apiErr.Message),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	}
}
