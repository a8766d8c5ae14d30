package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/aschepis/chatkit/chat"
	"github.com/aschepis/chatkit/config"
	chatkitlogger "github.com/aschepis/chatkit/logger"
	"github.com/aschepis/chatkit/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", config.Path(), "Path to config file")
		modelRef   = flag.String("model", "", "Model reference, e.g. openai/gpt-4o or a bare model name")
		system     = flag.String("system", "", "System prompt for the conversation")
		logFile    = flag.String("logfile", "chatkit.log", "Path to log file. If empty, logs to stdout")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is empty)")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := chatkitlogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info().Str("config", *configPath).Msg("chatd starting")

	registry := config.BuildRegistry(cfg)
	pipeline, cleanup, err := config.BuildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup() //nolint:errcheck // No remedy for cache close errors

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	toolReg := tools.NewRegistry(logger)
	for name, serverCfg := range cfg.MCPServers {
		server, err := tools.ConnectStdio(ctx, logger, serverCfg.Command, serverCfg.Env, serverCfg.Args...)
		if err != nil {
			logger.Warn().Str("server", name).Err(err).Msg("Failed to connect MCP server")
			continue
		}
		defer server.Close() //nolint:errcheck // Best-effort shutdown
		count, err := server.RegisterTools(ctx, toolReg)
		if err != nil {
			logger.Warn().Str("server", name).Err(err).Msg("Failed to register MCP tools")
			continue
		}
		logger.Info().Str("server", name).Int("tools", count).Msg("MCP server ready")
	}

	store := chat.NewMemoryStore()
	svc := chat.NewService(logger, registry, pipeline, toolReg, store,
		chat.WithMaxSteps(cfg.MaxSteps))

	conversationID := uuid.NewString()
	fmt.Println("chatd ready. Type a message, or Ctrl-D to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		events := svc.StreamTurn(ctx, chat.TurnRequest{
			ConversationID: conversationID,
			Model:          *modelRef,
			Text:           text,
			System:         *system,
			MaxTokens:      cfg.MaxTokens,
		})
		for ev := range events {
			switch ev.Type {
			case chat.EventTextDelta:
				fmt.Print(ev.Text)
			case chat.EventToolCallStart:
				fmt.Printf("\n[calling %s]\n", ev.ToolName)
			case chat.EventError:
				fmt.Printf("\nerror: %s\n", ev.Message)
			case chat.EventStreamEnd:
				fmt.Println()
			}
		}
	}
	return scanner.Err()
}
