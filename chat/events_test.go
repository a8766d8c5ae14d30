package chat

import (
	"encoding/json"
	"testing"

	"github.com/aschepis/chatkit/llm"
)

func marshalEvent(t *testing.T, ev Event) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return m
}

func TestEventMarshal_WireShapes(t *testing.T) {
	m := marshalEvent(t, Event{Type: EventStreamStart, MessageID: "msg_1"})
	if m["type"] != "stream_start" || m["message_id"] != "msg_1" {
		t.Errorf("Unexpected stream_start shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventTextDelta, Text: "hi"})
	if m["type"] != "text_delta" || m["text"] != "hi" {
		t.Errorf("Unexpected text_delta shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventToolCallStart, ToolCallID: "call_1", ToolName: "get_weather"})
	if m["tool_call_id"] != "call_1" || m["tool_name"] != "get_weather" {
		t.Errorf("Unexpected tool_call_start shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventToolInputReady, ToolCallID: "call_1", Input: map[string]interface{}{"city": "SF"}})
	input, ok := m["input"].(map[string]interface{})
	if !ok || input["city"] != "SF" {
		t.Errorf("Unexpected tool_input_ready shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventToolOutput, ToolCallID: "call_1", Output: map[string]interface{}{"temperature": 72}})
	output, ok := m["output"].(map[string]interface{})
	if !ok || output["temperature"] != float64(72) {
		t.Errorf("Unexpected tool_output shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventStepStart, Step: 0})
	if m["step"] != float64(0) {
		t.Errorf("Unexpected step_start shape: %v", m)
	}

	m = marshalEvent(t, Event{Type: EventError, Message: "boom"})
	if m["message"] != "boom" {
		t.Errorf("Unexpected error shape: %v", m)
	}
}

func TestEventMarshal_UsageFields(t *testing.T) {
	usage := &llm.Usage{PromptTokens: 10, CompletionTokens: 5}
	m := marshalEvent(t, Event{Type: EventStepFinish, Step: 1, FinishReason: "stop", Usage: usage})
	if m["finish_reason"] != "stop" || m["step"] != float64(1) {
		t.Fatalf("Unexpected step_finish shape: %v", m)
	}
	u, ok := m["usage"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected usage object, got %v", m["usage"])
	}
	if u["prompt_tokens"] != float64(10) || u["completion_tokens"] != float64(5) {
		t.Errorf("Unexpected usage fields: %v", u)
	}

	m = marshalEvent(t, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
	if _, present := m["usage"]; present {
		t.Errorf("Expected usage omitted when nil, got %v", m)
	}
}
