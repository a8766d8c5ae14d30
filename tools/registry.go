package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/aschepis/chatkit/llm"
)

// Handler executes a tool call. Args arrive already decoded; the returned
// value must be JSON-serializable.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Definition describes a registered tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema for the arguments
	Handler     Handler
}

// Registry maps tool names to definitions. Registering a name twice
// replaces the earlier definition.
type Registry struct {
	logger zerolog.Logger
	mu     sync.RWMutex
	defs   map[string]Definition
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "toolRegistry").Logger(),
		defs:   make(map[string]Definition),
	}
}

// Register adds a tool definition and returns it, so call sites can hold on
// to what they registered.
func (r *Registry) Register(def Definition) Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	} else {
		r.logger.Warn().Str("tool", def.Name).Msg("Replacing existing tool registration")
	}
	r.logger.Debug().Str("tool", def.Name).Msg("Registering tool")
	r.defs[def.Name] = def
	return def
}

// Get looks up a definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Specs renders the registry as provider-neutral tool definitions, in
// registration order.
func (r *Registry) Specs() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(name string, _ int) llm.Tool {
		def := r.defs[name]
		return llm.Tool{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		}
	})
}

// Execute dispatches a tool call. The handler runs on its own goroutine so
// a cancelled context returns promptly even mid-handler; panics become
// execution errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	def, ok := r.Get(name)
	if !ok {
		r.logger.Error().Str("tool", name).Msg("Unknown tool requested")
		return nil, llm.NewToolNotFoundError(name)
	}
	if args == nil {
		args = make(map[string]interface{})
	}
	r.logger.Info().Str("tool", name).Msg("Executing tool")

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		result, err := def.Handler(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, llm.NewToolExecutionError(name, ctx.Err())
	case out := <-done:
		if out.err != nil {
			r.logger.Warn().Str("tool", name).Err(out.err).Msg("Tool returned error")
			return nil, llm.NewToolExecutionError(name, out.err)
		}
		return out.result, nil
	}
}
