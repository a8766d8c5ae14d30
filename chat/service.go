package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
	"github.com/aschepis/chatkit/middleware"
	"github.com/aschepis/chatkit/tools"
)

// DefaultMaxSteps bounds the generate/execute loop of a single turn.
const DefaultMaxSteps = 10

// Service runs conversation turns: it resolves a provider, streams model
// output through the middleware pipeline, executes requested tools, and
// persists the resulting messages.
type Service struct {
	logger   zerolog.Logger
	registry *llm.Registry
	pipeline *middleware.Pipeline
	tools    *tools.Registry
	store    Store
	maxSteps int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMaxSteps overrides the default step limit for every turn.
func WithMaxSteps(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// NewService creates a Service. The tool registry may be nil for
// conversations without tools.
func NewService(logger zerolog.Logger, registry *llm.Registry, pipeline *middleware.Pipeline, toolReg *tools.Registry, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		logger:   logger.With().Str("component", "chatService").Logger(),
		registry: registry,
		pipeline: pipeline,
		tools:    toolReg,
		store:    store,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TurnRequest describes one user turn.
type TurnRequest struct {
	ConversationID string
	Model          string // "provider/model", bare model, or empty for defaults
	Text           string // plain text input; ignored when Parts is set
	Parts          []Part // rich input (text and image parts)
	System         string
	MaxSteps       int // 0 means the service default
	MaxTokens      int
	Temperature    *float64
}

func (r *TurnRequest) userParts() []Part {
	if len(r.Parts) > 0 {
		return r.Parts
	}
	return []Part{TextPart(r.Text)}
}

func (r *TurnRequest) stepLimit(fallback int) int {
	if r.MaxSteps > 0 {
		return r.MaxSteps
	}
	return fallback
}

// stepResult is what one provider call produced.
type stepResult struct {
	content   string
	toolCalls []llm.ToolCall
	usage     llm.Usage
}

// StreamTurn runs a full turn and streams events on the returned channel.
// The channel closes after a terminal event: stream_end on success or
// cancellation, error on failure. Callers must drain the channel until it
// closes, cancelling the context to stop early. The user message is
// persisted up front; the assistant message is persisted only when the
// turn completes.
func (s *Service) StreamTurn(ctx context.Context, req TurnRequest) <-chan Event {
	ch := make(chan Event, 32)
	go func() {
		defer close(ch)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Msg("Turn panicked")
				sendFinal(ch, Event{Type: EventError, Message: fmt.Sprintf("internal error: %v", rec)})
			}
		}()
		s.runTurn(ctx, req, ch)
	}()
	return ch
}

func (s *Service) runTurn(ctx context.Context, req TurnRequest, ch chan<- Event) {
	emit := func(ev Event) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	provider, model, err := s.registry.Resolve(req.Model)
	if err != nil {
		sendFinal(ch, Event{Type: EventError, Message: err.Error()})
		return
	}

	userMsg := &Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           llm.RoleUser,
		Parts:          req.userParts(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		sendFinal(ch, Event{Type: EventError, Message: fmt.Sprintf("failed to save message: %v", err)})
		return
	}

	history, err := s.store.Messages(ctx, req.ConversationID)
	if err != nil {
		sendFinal(ch, Event{Type: EventError, Message: fmt.Sprintf("failed to load history: %v", err)})
		return
	}
	base := s.baseMessages(req.System, history)

	assistantID := uuid.NewString()
	if !emit(Event{Type: EventStreamStart, MessageID: assistantID}) {
		sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
		return
	}

	maxSteps := req.stepLimit(s.maxSteps)
	var parts []Part
	var totalUsage llm.Usage

	for step := 0; step < maxSteps; step++ {
		if ctx.Err() != nil {
			sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
			return
		}
		if !emit(Event{Type: EventStepStart, Step: step}) {
			sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
			return
		}

		llmReq := &llm.Request{
			Model:       model,
			Messages:    append(append([]llm.Message(nil), base...), assistantMessages(parts)...),
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}
		if s.tools != nil {
			llmReq.Tools = s.tools.Specs()
		}

		res, err := s.streamStep(ctx, provider, llmReq, emit)
		if err != nil {
			if ctx.Err() != nil {
				sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
				return
			}
			s.logger.Error().Err(err).Int("step", step).Msg("Model call failed")
			sendFinal(ch, Event{Type: EventError, Message: err.Error()})
			return
		}
		totalUsage.Add(res.usage)

		if res.content != "" {
			parts = append(parts, TextPart(res.content))
		}

		// Tool calls on the final step are discarded, not persisted: every
		// stored tool_call part must have a matching tool_result.
		runTools := len(res.toolCalls) > 0 && step < maxSteps-1 && s.tools != nil
		if !runTools {
			stepUsage := res.usage
			if !emit(Event{Type: EventStepFinish, Step: step, FinishReason: "stop", Usage: &stepUsage}) {
				sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
				return
			}
			break
		}

		for _, call := range res.toolCalls {
			parts = append(parts, ToolCallPart(call.ID, call.Name, call.Args))
		}
		for _, call := range res.toolCalls {
			output := s.executeTool(ctx, call)
			parts = append(parts, ToolResultPart(call.ID, call.Name, output))
			if !emit(Event{Type: EventToolOutput, ToolCallID: call.ID, Output: output}) {
				sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
				return
			}
		}
		stepUsage := res.usage
		if !emit(Event{Type: EventStepFinish, Step: step, FinishReason: "tool_calls", Usage: &stepUsage}) {
			sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "cancelled"})
			return
		}
	}

	assistantMsg := &Message{
		ID:             assistantID,
		ConversationID: req.ConversationID,
		Role:           llm.RoleAssistant,
		Parts:          parts,
		Metadata: map[string]interface{}{
			"usage": map[string]int{
				"prompt_tokens":     totalUsage.PromptTokens,
				"completion_tokens": totalUsage.CompletionTokens,
			},
		},
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist assistant message")
		sendFinal(ch, Event{Type: EventError, Message: fmt.Sprintf("failed to save message: %v", err)})
		return
	}
	sendFinal(ch, Event{Type: EventStreamEnd, FinishReason: "stop", Usage: &totalUsage})
}

// streamStep makes one streaming provider call through the pipeline and
// forwards text and tool events to the caller's emitter.
func (s *Service) streamStep(ctx context.Context, provider llm.Provider, req *llm.Request, emit func(Event) bool) (*stepResult, error) {
	p := middleware.NewParams(req)
	if err := s.pipeline.TransformParams(ctx, p); err != nil {
		return nil, err
	}
	if content, ok := middleware.CachedContent(p); ok {
		if !emit(Event{Type: EventTextDelta, Text: content}) {
			return nil, ctx.Err()
		}
		return &stepResult{content: content}, nil
	}
	if err := s.pipeline.BeforeGenerate(ctx, p); err != nil {
		return nil, err
	}

	stream, err := provider.Stream(ctx, p.Request)
	if err != nil {
		return nil, err
	}
	stream = s.pipeline.WrapStream(p, stream)
	defer stream.Close()

	res := &stepResult{}
	var text strings.Builder
	for stream.Next() {
		ev := stream.Event()
		switch ev.Type {
		case llm.EventTextDelta:
			text.WriteString(ev.Text)
			if !emit(Event{Type: EventTextDelta, Text: ev.Text}) {
				return nil, ctx.Err()
			}
		case llm.EventToolCall:
			call := *ev.ToolCall
			res.toolCalls = append(res.toolCalls, call)
			if !emit(Event{Type: EventToolCallStart, ToolCallID: call.ID, ToolName: call.Name}) {
				return nil, ctx.Err()
			}
			if !emit(Event{Type: EventToolInputReady, ToolCallID: call.ID, Input: call.Args}) {
				return nil, ctx.Err()
			}
		case llm.EventUsage:
			if ev.Usage != nil {
				res.usage = *ev.Usage
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	res.content = text.String()

	s.pipeline.AfterGenerate(ctx, p, &middleware.Result{
		Content:   res.content,
		ToolCalls: res.toolCalls,
		Usage:     res.usage,
	})
	return res, nil
}

// executeTool runs one tool call. Failures never abort the turn; they come
// back as an error payload the model can read on the next step.
func (s *Service) executeTool(ctx context.Context, call llm.ToolCall) interface{} {
	output, err := s.tools.Execute(ctx, call.Name, call.Args)
	if err != nil {
		s.logger.Warn().Str("tool", call.Name).Err(err).Msg("Tool call failed")
		return map[string]interface{}{"error": err.Error()}
	}
	return output
}

func (s *Service) baseMessages(system string, history []Message) []llm.Message {
	var out []llm.Message
	if system != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	return append(out, ToModelMessages(history)...)
}

// sendFinal delivers a terminal event. It blocks until the consumer takes
// it, which is why StreamTurn's channel must be drained until it closes.
func sendFinal(ch chan<- Event, ev Event) {
	ch <- ev
}

// GenerateTurn runs a turn without streaming and returns the persisted
// assistant message.
func (s *Service) GenerateTurn(ctx context.Context, req TurnRequest) (*Message, error) {
	provider, model, err := s.registry.Resolve(req.Model)
	if err != nil {
		return nil, err
	}

	userMsg := &Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           llm.RoleUser,
		Parts:          req.userParts(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	history, err := s.store.Messages(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	base := s.baseMessages(req.System, history)

	maxSteps := req.stepLimit(s.maxSteps)
	var parts []Part
	var totalUsage llm.Usage

	for step := 0; step < maxSteps; step++ {
		llmReq := &llm.Request{
			Model:       model,
			Messages:    append(append([]llm.Message(nil), base...), assistantMessages(parts)...),
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}
		if s.tools != nil {
			llmReq.Tools = s.tools.Specs()
		}

		res, err := s.generateStep(ctx, provider, llmReq)
		if err != nil {
			return nil, err
		}
		totalUsage.Add(res.usage)

		if res.content != "" {
			parts = append(parts, TextPart(res.content))
		}
		if len(res.toolCalls) == 0 || step >= maxSteps-1 || s.tools == nil {
			break
		}
		for _, call := range res.toolCalls {
			parts = append(parts, ToolCallPart(call.ID, call.Name, call.Args))
		}
		for _, call := range res.toolCalls {
			parts = append(parts, ToolResultPart(call.ID, call.Name, s.executeTool(ctx, call)))
		}
	}

	assistantMsg := &Message{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		Role:           llm.RoleAssistant,
		Parts:          parts,
		Metadata: map[string]interface{}{
			"usage": map[string]int{
				"prompt_tokens":     totalUsage.PromptTokens,
				"completion_tokens": totalUsage.CompletionTokens,
			},
		},
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return assistantMsg, nil
}

// generateStep makes one non-streaming provider call through the pipeline.
func (s *Service) generateStep(ctx context.Context, provider llm.Provider, req *llm.Request) (*stepResult, error) {
	p := middleware.NewParams(req)
	if err := s.pipeline.TransformParams(ctx, p); err != nil {
		return nil, err
	}
	if content, ok := middleware.CachedContent(p); ok {
		return &stepResult{content: content}, nil
	}
	if err := s.pipeline.BeforeGenerate(ctx, p); err != nil {
		return nil, err
	}
	result, err := provider.Generate(ctx, p.Request)
	if err != nil {
		return nil, err
	}
	s.pipeline.AfterGenerate(ctx, p, &middleware.Result{
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
		Usage:     result.Usage,
	})
	return &stepResult{
		content:   result.Content,
		toolCalls: result.ToolCalls,
		usage:     result.Usage,
	}, nil
}

const titlePrompt = "Generate a concise title, at most six words, for a conversation that begins with the user message. Respond with the title only, no quotes."

// GenerateTitle asks the model for a short conversation title based on the
// first user message.
func (s *Service) GenerateTitle(ctx context.Context, modelRef, firstMessage string) (string, error) {
	provider, model, err := s.registry.Resolve(modelRef)
	if err != nil {
		return "", err
	}
	result, err := provider.Generate(ctx, &llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: titlePrompt},
			{Role: llm.RoleUser, Content: firstMessage},
		},
		MaxTokens: 32,
	})
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(result.Content)
	title = strings.Trim(title, `"'`)
	return title, nil
}
