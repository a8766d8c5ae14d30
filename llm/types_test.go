package llm

import (
	"testing"
)

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage(RoleUser, "Hello, world!")
	if msg.Role != RoleUser {
		t.Errorf("Expected role %v, got %v", RoleUser, msg.Role)
	}
	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got %q", msg.Content)
	}
}

func TestNewToolMessage(t *testing.T) {
	msg := NewToolMessage("call-1", `{"result": "success"}`)
	if msg.Role != RoleTool {
		t.Errorf("Expected role %v, got %v", RoleTool, msg.Role)
	}
	if msg.ToolCallID != "call-1" {
		t.Errorf("Expected tool call ID 'call-1', got %q", msg.ToolCallID)
	}
}

func TestNewAssistantMessage(t *testing.T) {
	calls := []ToolCall{{ID: "call-1", Name: "test_tool", Args: map[string]interface{}{"arg": "value"}}}
	msg := NewAssistantMessage("", calls)
	if msg.Role != RoleAssistant {
		t.Errorf("Expected role %v, got %v", RoleAssistant, msg.Role)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ID != "call-1" {
		t.Errorf("Expected one tool call with ID 'call-1', got %+v", msg.ToolCalls)
	}
}

func TestRequestClone(t *testing.T) {
	req := &Request{
		Model:    "gpt-4o",
		Messages: []Message{NewTextMessage(RoleUser, "hi")},
		Tools:    []Tool{{Name: "get_weather"}},
	}
	clone := req.Clone()
	clone.Messages = append(clone.Messages, NewTextMessage(RoleUser, "again"))
	clone.Tools[0].Name = "changed"

	if len(req.Messages) != 1 {
		t.Errorf("Expected original messages untouched, got %d", len(req.Messages))
	}
	if req.Tools[0].Name != "get_weather" {
		t.Errorf("Expected original tools untouched, got %q", req.Tools[0].Name)
	}
}

func TestUsageAddAndTotal(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5}
	u.Add(Usage{PromptTokens: 3, CompletionTokens: 2})
	if u.PromptTokens != 13 || u.CompletionTokens != 7 {
		t.Errorf("Unexpected usage after Add: %+v", u)
	}
	if u.Total() != 20 {
		t.Errorf("Expected total 20, got %d", u.Total())
	}
}
