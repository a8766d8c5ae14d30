// Package chat orchestrates multi-step conversations: it persists message
// history as typed parts, converts between the storage model and the
// provider wire model, and runs the agent loop that streams canonical
// events while executing tool calls.
package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aschepis/chatkit/llm"
)

// PartType identifies a message part.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

// Part is one piece of a stored message. Assistant turns interleave text,
// tool calls, and their results as ordered parts.
type Part struct {
	Type       PartType               `json:"type"`
	Text       string                 `json:"text,omitempty"`
	ImageURL   string                 `json:"image_url,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	Input      map[string]interface{} `json:"input,omitempty"`
	Output     interface{}            `json:"output,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

// ToolCallPart creates a tool invocation part.
func ToolCallPart(id, name string, input map[string]interface{}) Part {
	return Part{Type: PartToolCall, ToolCallID: id, ToolName: name, Input: input}
}

// ToolResultPart creates a tool result part.
func ToolResultPart(id, name string, output interface{}) Part {
	return Part{Type: PartToolResult, ToolCallID: id, ToolName: name, Output: output}
}

// Message is a stored conversation message.
type Message struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Role           llm.Role               `json:"role"`
	Parts          []Part                 `json:"parts"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Store is the persistence boundary for conversation history.
type Store interface {
	AppendMessage(ctx context.Context, msg *Message) error
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}

// MemoryStore is an in-process Store, used by tests and simple embedders.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

// AppendMessage implements Store.AppendMessage.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	stored := *msg
	stored.Parts = append([]Part(nil), msg.Parts...)
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], stored)
	return nil
}

// Messages implements Store.Messages, oldest first.
func (s *MemoryStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := append([]Message(nil), s.messages[conversationID]...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}
