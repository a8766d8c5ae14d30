package chat

import (
	"testing"

	"github.com/aschepis/chatkit/llm"
)

func TestToModelMessages_SingleTextUserStaysPlain(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleUser, Parts: []Part{TextPart("hello")}},
	})
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" || len(msgs[0].Blocks) != 0 {
		t.Errorf("Expected plain string content, got %+v", msgs[0])
	}
}

func TestToModelMessages_MultimodalUserBecomesBlocks(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleUser, Parts: []Part{
			TextPart("what is this?"),
			{Type: PartImage, ImageURL: "https://example.com/cat.png"},
		}},
	})
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Content != "" || len(msgs[0].Blocks) != 2 {
		t.Fatalf("Expected 2 content blocks, got %+v", msgs[0])
	}
	if msgs[0].Blocks[1].Type != llm.ContentBlockTypeImage {
		t.Errorf("Expected image block second, got %v", msgs[0].Blocks[1].Type)
	}
}

func TestToModelMessages_EmptySystemSkipped(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleSystem, Parts: []Part{TextPart("")}},
		{Role: llm.RoleUser, Parts: []Part{TextPart("hi")}},
	})
	if len(msgs) != 1 || msgs[0].Role != llm.RoleUser {
		t.Errorf("Expected empty system message dropped, got %+v", msgs)
	}
}

func TestToModelMessages_AssistantToolRoundExpands(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleAssistant, Parts: []Part{
			ToolCallPart("call_1", "get_weather", map[string]interface{}{"city": "SF"}),
			ToolResultPart("call_1", "get_weather", map[string]interface{}{"temperature": 72}),
			TextPart("It's 72°F in SF."),
		}},
	})
	if len(msgs) != 2 {
		t.Fatalf("Expected assistant + tool message, got %d: %+v", len(msgs), msgs)
	}
	asst := msgs[0]
	if asst.Role != llm.RoleAssistant || len(asst.ToolCalls) != 1 {
		t.Fatalf("Expected assistant with one tool call, got %+v", asst)
	}
	if asst.ToolCalls[0].ID != "call_1" || asst.ToolCalls[0].Name != "get_weather" {
		t.Errorf("Unexpected tool call: %+v", asst.ToolCalls[0])
	}
	if asst.Content != "It's 72°F in SF." {
		t.Errorf("Expected text parts joined into content, got %q", asst.Content)
	}
	tool := msgs[1]
	if tool.Role != llm.RoleTool || tool.ToolCallID != "call_1" {
		t.Fatalf("Expected tool message for call_1, got %+v", tool)
	}
	if tool.Content != `{"temperature":72}` {
		t.Errorf("Expected JSON-encoded output, got %q", tool.Content)
	}
}

func TestToModelMessages_AssistantOnlyToolCallsHasEmptyContent(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleAssistant, Parts: []Part{
			ToolCallPart("call_1", "get_weather", nil),
		}},
	})
	if len(msgs) != 1 || msgs[0].Content != "" {
		t.Errorf("Expected single assistant message with empty content, got %+v", msgs)
	}
}

func TestToModelMessages_EmptyAssistantDropped(t *testing.T) {
	msgs := ToModelMessages([]Message{
		{Role: llm.RoleAssistant, Parts: nil},
	})
	if len(msgs) != 0 {
		t.Errorf("Expected no messages for empty assistant parts, got %+v", msgs)
	}
}

func TestToModelMessages_Idempotent(t *testing.T) {
	history := []Message{
		{Role: llm.RoleSystem, Parts: []Part{TextPart("Be helpful.")}},
		{Role: llm.RoleUser, Parts: []Part{TextPart("weather?")}},
		{Role: llm.RoleAssistant, Parts: []Part{
			ToolCallPart("call_1", "get_weather", map[string]interface{}{"city": "SF"}),
			ToolResultPart("call_1", "get_weather", map[string]interface{}{"temperature": 72}),
			TextPart("72°F"),
		}},
	}
	first := ToModelMessages(history)
	second := ToModelMessages(history)
	if len(first) != len(second) {
		t.Fatalf("Expected stable output, got %d then %d messages", len(first), len(second))
	}
	for i := range first {
		if first[i].Role != second[i].Role || first[i].Content != second[i].Content {
			t.Errorf("Message %d differs between conversions: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestPartsFromResult_TextThenCalls(t *testing.T) {
	parts := PartsFromResult(&llm.GenerateResult{
		Content: "checking",
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "get_weather", Args: map[string]interface{}{"city": "SF"}},
		},
	})
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}
	if parts[0].Type != PartText || parts[1].Type != PartToolCall {
		t.Errorf("Expected text then tool_call, got %v then %v", parts[0].Type, parts[1].Type)
	}
}

func TestEncodeOutput_StringPassthrough(t *testing.T) {
	if got := encodeOutput("plain"); got != "plain" {
		t.Errorf("Expected string passthrough, got %q", got)
	}
	if got := encodeOutput(map[string]interface{}{"a": 1}); got != `{"a":1}` {
		t.Errorf("Expected JSON encoding, got %q", got)
	}
}
