package llm

import (
	"context"

	"github.com/ppiankov/alphasentinel/internal/worker"
)

// RateLimitedProvider throttles generation calls per provider name
type RateLimitedProvider struct {
	Provider
	limiter *worker.Limiter
}

// WithRateLimit wraps p so each Generate waits on the limiter first
func WithRateLimit(p Provider, limiter *worker.Limiter) Provider {
	if limiter == nil {
		return p
	}
	return &RateLimitedProvider{Provider: p, limiter: limiter}
}

// Generate waits for clearance, then delegates
func (p *RateLimitedProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, err
	}
	return p.Provider.Generate(ctx, req)
}

// RateLimitedEmbedder throttles embedding calls per provider name
type RateLimitedEmbedder struct {
	Embedder
	limiter *worker.Limiter
}

// WithEmbedRateLimit wraps e so each Embed waits on the limiter first
func WithEmbedRateLimit(e Embedder, limiter *worker.Limiter) Embedder {
	if limiter == nil {
		return e
	}
	return &RateLimitedEmbedder{Embedder: e, limiter: limiter}
}

// Embed waits for clearance, then delegates
func (e *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx, e.Name()+":embed"); err != nil {
		return nil, err
	}
	return e.Embedder.Embed(ctx, texts)
}
