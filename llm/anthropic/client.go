package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aschepis/chatkit/llm"
)

const defaultMaxTokens = 4096

// Config holds connection settings for the Anthropic API.
type Config struct {
	APIKey       string
	BaseURL      string // optional override
	DefaultModel string
}

// Client implements llm.Provider for Anthropic's Messages API. The SDK
// client is built lazily on first use so a misconfigured provider can be
// registered without failing until called.
type Client struct {
	cfg Config

	mu     sync.Mutex
	client *anthropic.Client
}

var _ llm.Provider = (*Client)(nil)

// NewClient creates a provider for the Anthropic API.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) ensureClient() (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.cfg.APIKey == "" {
		return nil, llm.NewConfigurationError("anthropic api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(c.cfg.APIKey)}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	c.client = &client
	return c.client, nil
}

func (c *Client) buildParams(req *llm.Request) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}
	if model == "" {
		return anthropic.MessageNewParams{}, llm.NewConfigurationError("model is required")
	}

	system, rest := SplitSystem(req.Messages)
	msgs, err := ToMessageParams(rest)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		params.Tools = ToToolParams(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params, nil
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
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertAPIError(err)
	}

	result := &llm.GenerateResult{
		FinishReason: finishReason(message.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
		},
	}
	for _, blockUnion := range message.Content {
		switch block := blockUnion.AsAny().(type) {
		case anthropic.TextBlock:
			result.Content += block.Text
		case anthropic.ToolUseBlock:
			result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: fromToolUseInput(block.Input),
			})
		}
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
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sdkStream := client.Messages.NewStreaming(ctx, params)
	return newStream(ctx, cancel, sdkStream), nil
}

func finishReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	case anthropic.StopReasonMaxTokens:
		return "length"
	default:
		return "stop"
	}
}

// convertAPIError maps Anthropic SDK errors into llm.Error kinds.
func convertAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return llm.NewTransportError("anthropic request failed", err)
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.Error{
			Kind:       llm.KindConfiguration,
			Message:    "anthropic auth rejected",
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, 529:
		return &llm.Error{
			Kind:       llm.KindTransport,
			Message:    "anthropic service unavailable",
			Retryable:  true,
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	default:
		return &llm.Error{
			Kind:       llm.KindRequest,
			Message:    "anthropic rejected request",
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}
}
