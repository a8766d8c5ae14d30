package chat

import (
	"encoding/json"

	"github.com/aschepis/chatkit/llm"
)

// EventType identifies a turn event on the wire.
type EventType string

const (
	EventStreamStart    EventType = "stream_start"
	EventTextDelta      EventType = "text_delta"
	EventToolCallStart  EventType = "tool_call_start"
	EventToolInputDelta EventType = "tool_input_delta"
	EventToolInputReady EventType = "tool_input_ready"
	EventToolOutput     EventType = "tool_output"
	EventStepStart      EventType = "step_start"
	EventStepFinish     EventType = "step_finish"
	EventStreamEnd      EventType = "stream_end"
	EventError          EventType = "error"
)

// Event is one entry in a turn's event stream. Which fields are set depends
// on the type; MarshalJSON flattens the relevant ones next to "type" so
// consumers see e.g. {"type":"text_delta","text":"hi"}.
type Event struct {
	Type         EventType
	MessageID    string
	Text         string
	ToolCallID   string
	ToolName     string
	InputDelta   string
	Input        map[string]interface{}
	Output       interface{}
	Step         int
	FinishReason string
	Usage        *llm.Usage
	Message      string
}

// MarshalJSON implements json.Marshaler with the flattened wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": string(e.Type)}
	switch e.Type {
	case EventStreamStart:
		m["message_id"] = e.MessageID
	case EventTextDelta:
		m["text"] = e.Text
	case EventToolCallStart:
		m["tool_call_id"] = e.ToolCallID
		m["tool_name"] = e.ToolName
	case EventToolInputDelta:
		m["tool_call_id"] = e.ToolCallID
		m["input_delta"] = e.InputDelta
	case EventToolInputReady:
		m["tool_call_id"] = e.ToolCallID
		m["input"] = e.Input
	case EventToolOutput:
		m["tool_call_id"] = e.ToolCallID
		m["output"] = e.Output
	case EventStepStart:
		m["step"] = e.Step
	case EventStepFinish:
		m["step"] = e.Step
		m["finish_reason"] = e.FinishReason
		if e.Usage != nil {
			m["usage"] = usageJSON(*e.Usage)
		}
	case EventStreamEnd:
		m["finish_reason"] = e.FinishReason
		if e.Usage != nil {
			m["usage"] = usageJSON(*e.Usage)
		}
	case EventError:
		m["message"] = e.Message
	}
	return json.Marshal(m)
}

func usageJSON(u llm.Usage) map[string]int {
	return map[string]int{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
	}
}
