// Package llm provides a provider-neutral abstraction layer for Large Language Model (LLM) APIs.
//
// This package defines common types, interfaces, and utilities that allow the codebase
// to work with multiple LLM providers (OpenAI, Anthropic, Azure, OpenAI-compatible
// endpoints) without being tightly coupled to any specific provider's SDK.
//
// # Core Concepts
//
//  1. Messages: the Message type represents a conversation message with a role
//     (system, user, assistant, tool), text or multimodal content, and tool calls.
//
//  2. Tools: the Tool type describes a callable tool exposed to the model, and
//     ToolCall represents a tool invocation requested by the model.
//
//  3. Provider Interface: the Provider interface provides Generate() for blocking
//     calls and Stream() for streaming calls. Implementations handle provider-specific
//     wire details.
//
//  4. Streams: a Stream yields text_delta, tool_call, and usage events in order.
//     Tool calls are emitted only once fully assembled; usage arrives exactly once.
//
//  5. Registry: the Registry resolves model references like "openai/gpt-4o" to a
//     registered provider, falling back to configured defaults.
//
//  6. Errors: the Error type provides provider-neutral error handling with a Kind
//     discriminator (configuration, request, transport, content_blocked, ...).
//
// Usage Example
//
//	provider := openai.NewClient(openai.Config{APIKey: key})
//
//	req := &llm.Request{
//	    Model: "gpt-4o",
//	    Messages: []llm.Message{
//	        llm.NewTextMessage(llm.RoleUser, "Hello!"),
//	    },
//	}
//
//	result, err := provider.Generate(ctx, req)
//
// # Extension Points
//
// To add a new provider:
//  1. Implement the Provider interface
//  2. Translate between provider-specific types and llm package types
//  3. Map provider-specific errors into llm.Error kinds
package llm
