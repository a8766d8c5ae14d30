package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/aschepis/chatkit/llm"
)

// blockState tracks a tool_use content block between its start and stop
// events. Anthropic streams tool input as partial JSON deltas keyed by
// block index.
type blockState struct {
	id   string
	name string
	args strings.Builder
}

// newStream pumps Anthropic SSE events into an llm.EventStream. Text deltas
// pass straight through; tool calls are emitted complete at their block's
// stop event; the single usage event carries the final message totals.
func newStream(ctx context.Context, cancel context.CancelFunc, sdkStream *ssestream.Stream[anthropic.MessageStreamEventUnion]) *llm.EventStream {
	stream := llm.NewEventStream(cancel)

	go func() {
		defer sdkStream.Close()

		blocks := make(map[int64]*blockState)
		var usage llm.Usage

		for sdkStream.Next() {
			event := sdkStream.Current()

			switch evt := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.PromptTokens = int(evt.Message.Usage.InputTokens)

			case anthropic.ContentBlockStartEvent:
				if block, ok := evt.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					blocks[evt.Index] = &blockState{id: block.ID, name: block.Name}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch d := evt.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if d.Text != "" {
						if !stream.Send(ctx, llm.Event{Type: llm.EventTextDelta, Text: d.Text}) {
							return
						}
					}
				case anthropic.InputJSONDelta:
					if state, ok := blocks[evt.Index]; ok {
						state.args.WriteString(d.PartialJSON)
					}
				}

			case anthropic.ContentBlockStopEvent:
				if state, ok := blocks[evt.Index]; ok {
					delete(blocks, evt.Index)
					tc := llm.ToolCall{ID: state.id, Name: state.name, Args: parseArgs(state.args.String())}
					if !stream.Send(ctx, llm.Event{Type: llm.EventToolCall, ToolCall: &tc}) {
						return
					}
				}

			case anthropic.MessageDeltaEvent:
				usage.CompletionTokens = int(evt.Usage.OutputTokens)
				if evt.Usage.InputTokens > 0 {
					usage.PromptTokens = int(evt.Usage.InputTokens)
				}

			case anthropic.MessageStopEvent:
				stream.Send(ctx, llm.Event{Type: llm.EventUsage, Usage: &usage})
				stream.Done()
				return
			}
		}

		if err := sdkStream.Err(); err != nil && ctx.Err() == nil {
			stream.Fail(convertAPIError(err))
			return
		}
		stream.Done()
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
