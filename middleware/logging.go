package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

const scratchStartTime = "logging.start_time"

// Logging records request latency, token usage, and stream chunk counts.
type Logging struct {
	Nop
	logger zerolog.Logger
}

// NewLogging creates the logging middleware.
func NewLogging(logger zerolog.Logger) *Logging {
	return &Logging{logger: logger.With().Str("component", "llmLogging").Logger()}
}

func (l *Logging) Name() string { return "logging" }

// BeforeGenerate stamps the call start time.
func (l *Logging) BeforeGenerate(ctx context.Context, p *Params) error {
	p.Set(scratchStartTime, time.Now())
	l.logger.Debug().
		Str("model", p.Request.Model).
		Int("messages", len(p.Request.Messages)).
		Int("tools", len(p.Request.Tools)).
		Msg("Model call starting")
	return nil
}

// AfterGenerate logs latency and usage.
func (l *Logging) AfterGenerate(ctx context.Context, p *Params, res *Result) error {
	event := l.logger.Info().
		Str("model", p.Request.Model).
		Int("prompt_tokens", res.Usage.PromptTokens).
		Int("completion_tokens", res.Usage.CompletionTokens).
		Int("tool_calls", len(res.ToolCalls))
	if v, ok := p.Pop(scratchStartTime); ok {
		if start, ok := v.(time.Time); ok {
			event = event.Int64("latency_ms", time.Since(start).Milliseconds())
		}
	}
	event.Msg("Model call completed")
	return nil
}

// WrapStream counts chunks and emitted text.
func (l *Logging) WrapStream(p *Params, next llm.Stream) llm.Stream {
	return &countingStream{next: next, logger: l.logger, model: p.Request.Model}
}

type countingStream struct {
	next   llm.Stream
	logger zerolog.Logger
	model  string
	chunks int
	chars  int
	logged bool
}

func (s *countingStream) Next() bool {
	if s.next.Next() {
		s.chunks++
		if ev := s.next.Event(); ev != nil && ev.Type == llm.EventTextDelta {
			s.chars += len(ev.Text)
		}
		return true
	}
	if !s.logged {
		s.logged = true
		s.logger.Debug().
			Str("model", s.model).
			Int("chunks", s.chunks).
			Int("text_length", s.chars).
			Msg("Stream completed")
	}
	return false
}

func (s *countingStream) Event() *llm.Event { return s.next.Event() }
func (s *countingStream) Err() error        { return s.next.Err() }
func (s *countingStream) Close() error      { return s.next.Close() }
