package llm

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a provider-neutral conversation message. Plain text lives in
// Content; multimodal user messages carry Blocks instead. Assistant messages
// may request tool invocations via ToolCalls, and tool-role messages carry
// the result for a single invocation identified by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	Blocks     []ContentBlock // when non-empty, takes precedence over Content
	ToolCalls  []ToolCall
	ToolCallID string
}

// ContentBlock is one piece of a multimodal message body.
type ContentBlock struct {
	Type     ContentBlockType
	Text     string
	ImageURL string
}

// ContentBlockType represents the type of content block.
type ContentBlockType string

const (
	ContentBlockTypeText  ContentBlockType = "text"
	ContentBlockTypeImage ContentBlockType = "image_url"
)

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// Tool describes a callable tool exposed to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema for the arguments
}

// Request represents a complete model invocation.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []Tool
	MaxTokens   int
	Temperature *float64 // optional override
}

// Clone returns a copy of the request with its own message and tool slices.
// Middleware that rewrites a request operates on a clone so that callers
// never observe mutation of what they passed in.
func (r *Request) Clone() *Request {
	out := *r
	out.Messages = append([]Message(nil), r.Messages...)
	out.Tools = append([]Tool(nil), r.Tools...)
	return &out
}

// GenerateResult is a complete non-streaming model response.
type GenerateResult struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Usage reports token consumption for one model call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Add accumulates another usage report into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// EventType represents the type of provider streaming event.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventToolCall  EventType = "tool_call"
	EventUsage     EventType = "usage"
)

// Event is a single provider-level streaming event. Tool calls are emitted
// only once fully assembled; usage is emitted exactly once with the
// provider's final totals.
type Event struct {
	Type     EventType
	Text     string
	ToolCall *ToolCall
	Usage    *Usage
}

// NewTextMessage creates a message with plain text content.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolMessage creates a tool-role message carrying a tool result.
func NewToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: content}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}
