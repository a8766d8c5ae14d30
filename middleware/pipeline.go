package middleware

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

// Pipeline runs middleware in registration order. TransformParams and
// BeforeGenerate run first to last, AfterGenerate runs last to first, and
// WrapStream leaves the first-registered middleware outermost.
//
// A failing hook is logged and skipped so one broken middleware cannot take
// down the call. The single exception is a content-blocked error from
// TransformParams, which aborts the call before it reaches the provider.
type Pipeline struct {
	middlewares []Middleware
	logger      zerolog.Logger
}

// NewPipeline creates a pipeline over the given middleware.
func NewPipeline(logger zerolog.Logger, middlewares ...Middleware) *Pipeline {
	return &Pipeline{
		middlewares: middlewares,
		logger:      logger.With().Str("component", "middlewarePipeline").Logger(),
	}
}

// Use appends a middleware to the end of the pipeline.
func (pl *Pipeline) Use(m Middleware) {
	pl.middlewares = append(pl.middlewares, m)
}

// TransformParams runs the transform hooks first to last.
func (pl *Pipeline) TransformParams(ctx context.Context, p *Params) error {
	for _, m := range pl.middlewares {
		if err := m.TransformParams(ctx, p); err != nil {
			if llm.IsKind(err, llm.KindContentBlocked) {
				return err
			}
			pl.logger.Warn().Err(err).Str("middleware", m.Name()).Msg("TransformParams hook failed, skipping")
		}
	}
	return nil
}

// BeforeGenerate runs the pre-call hooks first to last.
func (pl *Pipeline) BeforeGenerate(ctx context.Context, p *Params) error {
	for _, m := range pl.middlewares {
		if err := m.BeforeGenerate(ctx, p); err != nil {
			pl.logger.Warn().Err(err).Str("middleware", m.Name()).Msg("BeforeGenerate hook failed, skipping")
		}
	}
	return nil
}

// AfterGenerate runs the post-call hooks last to first.
func (pl *Pipeline) AfterGenerate(ctx context.Context, p *Params, res *Result) {
	for i := len(pl.middlewares) - 1; i >= 0; i-- {
		m := pl.middlewares[i]
		if err := m.AfterGenerate(ctx, p, res); err != nil {
			pl.logger.Warn().Err(err).Str("middleware", m.Name()).Msg("AfterGenerate hook failed, skipping")
		}
	}
}

// WrapStream decorates a stream so the first-registered middleware observes
// events outermost.
func (pl *Pipeline) WrapStream(p *Params, stream llm.Stream) llm.Stream {
	for i := len(pl.middlewares) - 1; i >= 0; i-- {
		stream = pl.middlewares[i].WrapStream(p, stream)
	}
	return stream
}
