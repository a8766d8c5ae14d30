package anthropic

import (
	"testing"

	"github.com/aschepis/chatkit/llm"
)

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]llm.Message{
		llm.NewTextMessage(llm.RoleSystem, "Be helpful."),
		llm.NewTextMessage(llm.RoleSystem, "Be brief."),
		llm.NewTextMessage(llm.RoleUser, "hi"),
	})
	if system != "Be helpful.\nBe brief." {
		t.Errorf("Unexpected system prompt: %q", system)
	}
	if len(rest) != 1 || rest[0].Role != llm.RoleUser {
		t.Errorf("Expected 1 non-system message, got %+v", rest)
	}
}

func TestSplitSystem_SkipsEmpty(t *testing.T) {
	system, rest := SplitSystem([]llm.Message{
		llm.NewTextMessage(llm.RoleSystem, ""),
		llm.NewTextMessage(llm.RoleUser, "hi"),
	})
	if system != "" {
		t.Errorf("Expected empty system prompt, got %q", system)
	}
	if len(rest) != 1 {
		t.Errorf("Expected 1 message, got %d", len(rest))
	}
}

func TestToMessageParam_ToolResult(t *testing.T) {
	param, err := ToMessageParam(llm.NewToolMessage("call-1", `{"temperature": 72}`))
	if err != nil {
		t.Fatalf("Failed to convert: %v", err)
	}
	if string(param.Role) != "user" {
		t.Errorf("Expected tool results on a user message, got role %q", param.Role)
	}
	if len(param.Content) != 1 || param.Content[0].OfToolResult == nil {
		t.Fatalf("Expected a single tool_result block, got %+v", param.Content)
	}
	if param.Content[0].OfToolResult.ToolUseID != "call-1" {
		t.Errorf("Unexpected tool use ID: %q", param.Content[0].OfToolResult.ToolUseID)
	}
}

func TestToMessageParam_AssistantToolCalls(t *testing.T) {
	param, err := ToMessageParam(llm.NewAssistantMessage("Checking the weather.", []llm.ToolCall{
		{ID: "call-1", Name: "get_weather", Args: map[string]interface{}{"city": "SF"}},
	}))
	if err != nil {
		t.Fatalf("Failed to convert: %v", err)
	}
	if string(param.Role) != "assistant" {
		t.Errorf("Expected assistant role, got %q", param.Role)
	}
	if len(param.Content) != 2 {
		t.Fatalf("Expected text + tool_use blocks, got %d blocks", len(param.Content))
	}
	if param.Content[0].OfText == nil {
		t.Error("Expected first block to be text")
	}
	if param.Content[1].OfToolUse == nil || param.Content[1].OfToolUse.Name != "get_weather" {
		t.Errorf("Expected tool_use block for get_weather, got %+v", param.Content[1])
	}
}

func TestToToolParams(t *testing.T) {
	params := ToToolParams([]llm.Tool{{
		Name:        "get_weather",
		Description: "Get the weather",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"city": map[string]interface{}{"type": "string"}},
			"required":   []interface{}{"city"},
		},
	}})
	if len(params) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(params))
	}
	tool := params[0].OfTool
	if tool == nil {
		t.Fatal("Expected a plain tool param")
	}
	if tool.Name != "get_weather" {
		t.Errorf("Expected name 'get_weather', got %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "city" {
		t.Errorf("Unexpected required list: %v", tool.InputSchema.Required)
	}
}

func TestFromToolUseInput(t *testing.T) {
	args := fromToolUseInput(map[string]interface{}{"city": "SF"})
	if args["city"] != "SF" {
		t.Errorf("Expected city 'SF', got %v", args["city"])
	}
	if got := fromToolUseInput(nil); len(got) != 0 {
		t.Errorf("Expected empty args for nil input, got %v", got)
	}
}
