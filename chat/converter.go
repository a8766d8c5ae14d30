package chat

import (
	"encoding/json"
	"strings"

	"github.com/aschepis/chatkit/llm"
)

// ToModelMessages converts stored history into the provider-neutral message
// list. System messages collapse their text parts into one message and are
// skipped when empty. A user message with a single text part stays a plain
// string; anything richer becomes content blocks. Assistant tool_result
// parts expand into one tool-role message each, placed right after the
// assistant message that produced them.
func ToModelMessages(msgs []Message) []llm.Message {
	var out []llm.Message
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			text := joinText(msg.Parts)
			if text == "" {
				continue
			}
			out = append(out, llm.Message{Role: llm.RoleSystem, Content: text})
		case llm.RoleUser:
			out = append(out, userMessage(msg.Parts))
		case llm.RoleAssistant:
			out = append(out, assistantMessages(msg.Parts)...)
		case llm.RoleTool:
			// Stored tool messages are unexpected; results live as
			// assistant parts. Pass through for robustness.
			for _, p := range msg.Parts {
				if p.Type == PartToolResult {
					out = append(out, llm.NewToolMessage(p.ToolCallID, encodeOutput(p.Output)))
				}
			}
		}
	}
	return out
}

func userMessage(parts []Part) llm.Message {
	blocks := make([]llm.ContentBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			blocks = append(blocks, llm.ContentBlock{Type: llm.ContentBlockTypeText, Text: p.Text})
		case PartImage:
			blocks = append(blocks, llm.ContentBlock{Type: llm.ContentBlockTypeImage, ImageURL: p.ImageURL})
		}
	}
	if len(blocks) == 1 && blocks[0].Type == llm.ContentBlockTypeText {
		return llm.Message{Role: llm.RoleUser, Content: blocks[0].Text}
	}
	return llm.Message{Role: llm.RoleUser, Blocks: blocks}
}

func assistantMessages(parts []Part) []llm.Message {
	var texts []string
	var calls []llm.ToolCall
	var results []Part
	for _, p := range parts {
		switch p.Type {
		case PartText:
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		case PartToolCall:
			calls = append(calls, llm.ToolCall{ID: p.ToolCallID, Name: p.ToolName, Args: p.Input})
		case PartToolResult:
			results = append(results, p)
		}
	}
	if len(texts) == 0 && len(calls) == 0 && len(results) == 0 {
		return nil
	}

	out := []llm.Message{{
		Role:      llm.RoleAssistant,
		Content:   strings.Join(texts, ""),
		ToolCalls: calls,
	}}
	for _, p := range results {
		out = append(out, llm.NewToolMessage(p.ToolCallID, encodeOutput(p.Output)))
	}
	return out
}

// PartsFromResult converts a provider response into stored parts: the text
// first, then a tool_call part per requested call.
func PartsFromResult(res *llm.GenerateResult) []Part {
	var parts []Part
	if res.Content != "" {
		parts = append(parts, TextPart(res.Content))
	}
	for _, call := range res.ToolCalls {
		parts = append(parts, ToolCallPart(call.ID, call.Name, call.Args))
	}
	return parts
}

func joinText(parts []Part) string {
	var texts []string
	for _, p := range parts {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func encodeOutput(output interface{}) string {
	if s, ok := output.(string); ok {
		return s
	}
	data, err := json.Marshal(output)
	if err != nil {
		return "{}"
	}
	return string(data)
}
