package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

// defaultBlockedPatterns are prompt-injection shapes rejected before a
// request reaches the provider.
var defaultBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\s+`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
}

const (
	// filteredNotice replaces blocked streaming output.
	filteredNotice = "\n\n[Content filtered by safety policy]"
	// outputCheckThreshold is how much accumulated text triggers a scan.
	outputCheckThreshold = 100
	// outputCarryover is how much tail text is kept between scans so a
	// pattern spanning two chunks is still caught.
	outputCarryover = 50
)

// Verdict is the outcome of a guardrail check.
type Verdict struct {
	Blocked bool
	Pattern string
}

// CheckText scans text against a pattern list.
func CheckText(text string, patterns []*regexp.Regexp) Verdict {
	for _, re := range patterns {
		if re.MatchString(text) {
			return Verdict{Blocked: true, Pattern: re.String()}
		}
	}
	return Verdict{}
}

// Guardrails rejects user input matching blocked patterns before dispatch
// and truncates streamed output that starts matching them mid-flight.
// Input and output use separate pattern lists; both default to the built-in
// injection patterns.
type Guardrails struct {
	Nop
	logger zerolog.Logger
	input  []*regexp.Regexp
	output []*regexp.Regexp
}

// GuardrailsOption configures a Guardrails.
type GuardrailsOption func(*Guardrails)

// WithInputPatterns replaces the patterns applied to user input.
func WithInputPatterns(patterns []*regexp.Regexp) GuardrailsOption {
	return func(g *Guardrails) { g.input = patterns }
}

// WithOutputPatterns replaces the patterns applied to streamed output.
func WithOutputPatterns(patterns []*regexp.Regexp) GuardrailsOption {
	return func(g *Guardrails) { g.output = patterns }
}

// NewGuardrails creates the guardrail middleware.
func NewGuardrails(logger zerolog.Logger, opts ...GuardrailsOption) *Guardrails {
	g := &Guardrails{
		logger: logger.With().Str("component", "guardrails").Logger(),
		input:  defaultBlockedPatterns,
		output: defaultBlockedPatterns,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guardrails) Name() string { return "guardrails" }

// TransformParams checks user-role text. A match aborts the call; this is
// the one hook error the pipeline does not suppress.
func (g *Guardrails) TransformParams(ctx context.Context, p *Params) error {
	for _, msg := range p.Request.Messages {
		if msg.Role != llm.RoleUser || msg.Content == "" {
			continue
		}
		if verdict := CheckText(msg.Content, g.input); verdict.Blocked {
			g.logger.Warn().Str("pattern", verdict.Pattern).Msg("Blocked user input")
			return llm.NewContentBlockedError("input blocked by safety policy")
		}
	}
	return nil
}

// WrapStream scans accumulated output text.
func (g *Guardrails) WrapStream(p *Params, next llm.Stream) llm.Stream {
	return &guardedStream{next: next, logger: g.logger, patterns: g.output}
}

type guardedStream struct {
	next     llm.Stream
	logger   zerolog.Logger
	patterns []*regexp.Regexp
	buf      strings.Builder
	finished bool
	cur      *llm.Event
}

func (s *guardedStream) Next() bool {
	if s.finished {
		return false
	}
	for s.next.Next() {
		ev := s.next.Event()
		if ev != nil && ev.Type == llm.EventTextDelta {
			s.buf.WriteString(ev.Text)
			if s.buf.Len() > outputCheckThreshold {
				text := s.buf.String()
				if verdict := CheckText(text, s.patterns); verdict.Blocked {
					s.logger.Warn().Str("pattern", verdict.Pattern).Msg("Truncated blocked stream output")
					s.cur = &llm.Event{Type: llm.EventTextDelta, Text: filteredNotice}
					s.finished = true
					_ = s.next.Close()
					return true
				}
				s.buf.Reset()
				s.buf.WriteString(text[len(text)-outputCarryover:])
			}
		}
		s.cur = ev
		return true
	}
	s.finished = true
	return false
}

func (s *guardedStream) Event() *llm.Event { return s.cur }
func (s *guardedStream) Err() error        { return s.next.Err() }
func (s *guardedStream) Close() error      { return s.next.Close() }
