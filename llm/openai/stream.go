package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/chatkit/llm"
)

// pendingCall accumulates a tool call assembled across deltas.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// newStream pumps SDK chunks into an llm.EventStream. Tool-call deltas are
// keyed by choice index and emitted as complete tool_call events only when
// the finish reason arrives. With IncludeUsage set, the final chunk carries
// usage and no choices; it becomes the single usage event.
func newStream(ctx context.Context, sdkStream *openai.ChatCompletionStream) *llm.EventStream {
	ctx, cancel := context.WithCancel(ctx)
	stream := llm.NewEventStream(cancel)

	go func() {
		defer sdkStream.Close()

		pending := make(map[int]*pendingCall)
		var order []int
		var usage *llm.Usage
		finished := false

		for {
			chunk, err := sdkStream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					if usage != nil {
						stream.Send(ctx, llm.Event{Type: llm.EventUsage, Usage: usage})
					}
					stream.Done()
				} else if ctx.Err() != nil {
					stream.Done()
				} else {
					stream.Fail(convertAPIError(err))
				}
				return
			}

			if chunk.Usage != nil {
				usage = &llm.Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.Delta.Content != "" {
				if !stream.Send(ctx, llm.Event{Type: llm.EventTextDelta, Text: choice.Delta.Content}) {
					return
				}
			}

			for _, delta := range choice.Delta.ToolCalls {
				idx := 0
				if delta.Index != nil {
					idx = *delta.Index
				}
				call, ok := pending[idx]
				if !ok {
					call = &pendingCall{}
					pending[idx] = call
					order = append(order, idx)
				}
				if delta.ID != "" {
					call.id = delta.ID
				}
				if delta.Function.Name != "" {
					call.name = delta.Function.Name
				}
				call.args.WriteString(delta.Function.Arguments)
			}

			if choice.FinishReason == openai.FinishReasonToolCalls && !finished {
				finished = true
				for _, idx := range order {
					call := pending[idx]
					tc := llm.ToolCall{ID: call.id, Name: call.name, Args: parseArgs(call.args.String())}
					if !stream.Send(ctx, llm.Event{Type: llm.EventToolCall, ToolCall: &tc}) {
						return
					}
				}
			}
		}
	}()

	return stream
}

func parseArgs(raw string) map[string]interface{} {
	args := make(map[string]interface{})
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return make(map[string]interface{})
	}
	return args
}
