package openai

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/chatkit/llm"
)

// ToChatMessages converts canonical messages to OpenAI chat message format.
func ToChatMessages(msgs []llm.Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		converted, err := ToChatMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to convert message: %w", err)
		}
		result = append(result, converted)
	}
	return result, nil
}

// ToChatMessage converts a single canonical message to OpenAI format.
func ToChatMessage(msg llm.Message) (openai.ChatCompletionMessage, error) {
	var role string
	switch msg.Role {
	case llm.RoleSystem:
		role = openai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case llm.RoleTool:
		role = openai.ChatMessageRoleTool
	default:
		role = openai.ChatMessageRoleUser
	}

	out := openai.ChatCompletionMessage{
		Role:       role,
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.Blocks) > 0 {
		out.MultiContent = lo.Map(msg.Blocks, func(b llm.ContentBlock, _ int) openai.ChatMessagePart {
			if b.Type == llm.ContentBlockTypeImage {
				return openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: b.ImageURL},
				}
			}
			return openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: b.Text,
			}
		})
	} else {
		out.Content = msg.Content
	}

	for _, call := range msg.ToolCalls {
		argsJSON, err := json.Marshal(call.Args)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("failed to marshal tool args: %w", err)
		}
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(argsJSON),
			},
		})
	}

	return out, nil
}

// ToChatTools converts canonical tool definitions to OpenAI function format.
func ToChatTools(tools []llm.Tool) []openai.Tool {
	return lo.Map(tools, func(t llm.Tool, _ int) openai.Tool {
		return openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	})
}

// FromToolCall converts an OpenAI tool call response to a canonical ToolCall.
// Malformed argument JSON degrades to an empty args map rather than failing
// the whole response.
func FromToolCall(call openai.ToolCall) llm.ToolCall {
	args := make(map[string]interface{})
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			args = make(map[string]interface{})
		}
	}
	return llm.ToolCall{
		ID:   call.ID,
		Name: call.Function.Name,
		Args: args,
	}
}
