package llm

import (
	"context"

	"stackforge/internal/llmclient"
)

// Middleware wraps an LLMClient with a cross-cutting concern.
type Middleware func(next llmclient.LLMClient) llmclient.LLMClient

// Chain applies middlewares to base so the first middleware listed is the
// outermost layer.
func Chain(base llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

type componentKey struct{}

// WithComponent tags the context with the generation component issuing the
// oracle call (backend, frontend, database).
func WithComponent(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, componentKey{}, name)
}

// ComponentFrom returns the component tag, or "unknown".
func ComponentFrom(ctx context.Context) string {
	if v, ok := ctx.Value(componentKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
