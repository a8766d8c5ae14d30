package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

// MCPServer wraps a connection to an MCP server whose tools get registered
// into a Registry. Tool names may contain dots, which some model APIs
// reject; registered names replace dots with underscores and calls go out
// under the original name.
type MCPServer struct {
	client  *client.Client
	logger  zerolog.Logger
	command string
}

// ConnectStdio launches an MCP server subprocess over stdio and performs
// the protocol handshake.
func ConnectStdio(ctx context.Context, logger zerolog.Logger, command string, env []string, args ...string) (*MCPServer, error) {
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}
	logger = logger.With().Str("component", "mcpServer").Str("command", command).Logger()

	mcpClient, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdio MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "chatkit",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	logger.Info().Msg("MCP server connected")
	return &MCPServer{client: mcpClient, logger: logger, command: command}, nil
}

// SafeName converts an MCP tool name to one model APIs accept.
// Example: "gmail.messages.list" -> "gmail_messages_list"
func SafeName(original string) string {
	return strings.ReplaceAll(original, ".", "_")
}

// RegisterTools lists the server's tools and registers each one. Returns
// how many tools were registered.
func (s *MCPServer) RegisterTools(ctx context.Context, reg *Registry) (int, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return 0, fmt.Errorf("failed to list tools: %w", err)
	}
	s.logger.Info().Int("tool_count", len(result.Tools)).Msg("Received tools from MCP server")

	for _, tool := range result.Tools {
		original := tool.Name
		schema := map[string]interface{}{"type": tool.InputSchema.Type}
		if tool.InputSchema.Properties != nil {
			schema["properties"] = tool.InputSchema.Properties
		}
		if len(tool.InputSchema.Required) > 0 {
			schema["required"] = tool.InputSchema.Required
		}
		if len(tool.InputSchema.Defs) > 0 {
			schema["$defs"] = tool.InputSchema.Defs
		}

		reg.Register(Definition{
			Name:        SafeName(original),
			Description: tool.Description,
			Parameters:  schema,
			Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return s.invoke(ctx, original, args)
			},
		})
	}
	return len(result.Tools), nil
}

// invoke calls a tool under its original name and flattens the content
// blocks into a plain result map.
func (s *MCPServer) invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke tool %s: %w", name, err)
	}

	var texts []string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			texts = append(texts, textContent.Text)
		}
	}

	output := make(map[string]interface{})
	switch len(texts) {
	case 0:
	case 1:
		output["text"] = texts[0]
	default:
		output["text"] = texts
	}
	if result.IsError {
		msg := "tool reported an error"
		if len(texts) > 0 {
			msg = texts[0]
		}
		return nil, llm.NewToolExecutionError(name, fmt.Errorf("%s", msg))
	}
	return output, nil
}

// Close shuts down the server connection.
func (s *MCPServer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
