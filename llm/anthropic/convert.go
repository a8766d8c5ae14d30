package anthropic

import (
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/aschepis/chatkit/llm"
)

// SplitSystem separates system messages from the rest of the conversation.
// Anthropic takes the system prompt as a top-level parameter, so multiple
// system messages are concatenated with newlines.
func SplitSystem(msgs []llm.Message) (string, []llm.Message) {
	var system []string
	rest := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == llm.RoleSystem {
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n"), rest
}

// ToMessageParams converts canonical messages to Anthropic message params.
// Tool-role messages become user messages carrying a tool_result block, and
// assistant tool calls become tool_use blocks, per the Messages API shape.
func ToMessageParams(msgs []llm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := ToMessageParam(msg)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

// ToMessageParam converts a single canonical message.
func ToMessageParam(msg llm.Message) (anthropic.MessageParam, error) {
	switch msg.Role {
	case llm.RoleTool:
		block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
		return anthropic.NewUserMessage(block), nil

	case llm.RoleAssistant:
		var blocks []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			input := call.Args
			if input == nil {
				input = make(map[string]interface{})
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
		}
		return anthropic.NewAssistantMessage(blocks...), nil

	default:
		if len(msg.Blocks) > 0 {
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
			for _, b := range msg.Blocks {
				blocks = append(blocks, toContentBlock(b))
			}
			return anthropic.NewUserMessage(blocks...), nil
		}
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)), nil
	}
}

// toContentBlock converts a multimodal block. Inline data URLs carry their
// media type before the base64 payload; remote URLs pass through as-is.
func toContentBlock(b llm.ContentBlock) anthropic.ContentBlockParamUnion {
	if b.Type != llm.ContentBlockTypeImage {
		return anthropic.NewTextBlock(b.Text)
	}
	if strings.HasPrefix(b.ImageURL, "data:") {
		meta, data, found := strings.Cut(strings.TrimPrefix(b.ImageURL, "data:"), ";base64,")
		if found {
			return anthropic.NewImageBlockBase64(meta, data)
		}
	}
	return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: b.ImageURL})
}

// ToToolParams converts canonical tool definitions. The JSON schema splits
// into the fields Anthropic's input_schema expects.
func ToToolParams(tools []llm.Tool) []anthropic.ToolUnionParam {
	return lo.Map(tools, func(t llm.Tool, _ int) anthropic.ToolUnionParam {
		schema := anthropic.ToolInputSchemaParam{Type: "object"}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := t.Parameters["required"].([]interface{}); ok {
			schema.Required = lo.FilterMap(req, func(v interface{}, _ int) (string, bool) {
				s, ok := v.(string)
				return s, ok
			})
		} else if req, ok := t.Parameters["required"].([]string); ok {
			schema.Required = req
		}
		return anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		}
	})
}

// fromToolUseInput decodes a tool_use input payload into a canonical args
// map, degrading to empty on anything malformed.
func fromToolUseInput(input interface{}) map[string]interface{} {
	args := make(map[string]interface{})
	if input == nil {
		return args
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return make(map[string]interface{})
	}
	return args
}
