package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ppiankov/alphasentinel/internal/adjudicate"
	"github.com/ppiankov/alphasentinel/internal/cache"
	"github.com/ppiankov/alphasentinel/internal/document"
	"github.com/ppiankov/alphasentinel/internal/extract"
	"github.com/ppiankov/alphasentinel/internal/index"
	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/pipeline"
	"github.com/ppiankov/alphasentinel/internal/worker"
)

// engine holds the capabilities one command invocation shares
type engine struct {
	cfg      *model.Config
	provider llm.Provider // nil for commands that only embed
	embedder llm.Embedder
	loader   *document.Loader
	closers  []io.Closer
}

// newEngine wires providers, rate limiting, the embedding cache and the document loader
func newEngine(ctx context.Context, cfg *model.Config, withGeneration bool) (*engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	e := &engine{
		cfg:    cfg,
		loader: document.NewLoader(cfg.HTTP, limiter, slog.Default()),
	}

	embedder, err := llm.NewEmbedder(ctx, llm.EmbeddingConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	e.track(embedder)
	e.embedder = llm.WithEmbeddingCache(
		llm.WithEmbedRateLimit(embedder, limiter),
		cfg.Embedding.Model,
		cache.New(cfg.Cache),
	)

	if withGeneration {
		provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg))
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("LLM provider: %w", err)
		}
		e.track(provider)
		e.provider = llm.WithRateLimit(provider, limiter)
	}

	return e, nil
}

func (e *engine) track(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
}

// Close releases provider clients
func (e *engine) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			slog.Debug("close provider", "error", err)
		}
	}
	e.closers = nil
}

// buildIndex loads the filing and indexes it. A missing filing yields an
// empty index and a warning; the run continues with no-evidence verdicts.
func (e *engine) buildIndex(ctx context.Context, source string) (*index.Index, error) {
	doc, err := e.loader.LoadReference(ctx, source)
	if err != nil {
		if !errors.Is(err, document.ErrNotFound) {
			return nil, fmt.Errorf("load filing: %w", err)
		}
		fmt.Fprintf(os.Stderr, "⚠️  Filing not found: %s\n", source)
		doc = nil
	}

	opts := index.OptionsFromConfig(e.cfg)
	opts.Logger = slog.Default()

	idx, err := index.Build(ctx, doc, e.embedder, opts)
	if errors.Is(err, index.ErrMissingReferenceDocument) {
		slog.Warn("reference document missing, claims will have no evidence", "source", source)
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

// newPipeline assembles extractor and adjudicator over idx
func (e *engine) newPipeline(idx *index.Index) *pipeline.Pipeline {
	extractOpts := extract.OptionsFromConfig(e.cfg)
	extractOpts.Logger = slog.Default()

	adjudicateOpts := adjudicate.OptionsFromConfig(e.cfg)
	adjudicateOpts.Logger = slog.Default()

	p := pipeline.New(
		e.cfg,
		extract.NewClaimExtractor(e.provider, extractOpts),
		adjudicate.NewAdjudicator(e.provider, idx, adjudicateOpts),
	)
	p.SetLogger(slog.Default())
	return p
}

// llmInfo records which capabilities produced a report
func (e *engine) llmInfo() model.LLMInfo {
	info := model.LLMInfo{
		EmbeddingProvider: e.embedder.Name(),
		EmbeddingModel:    e.cfg.Embedding.Model,
	}
	if e.provider != nil {
		info.Provider = e.provider.Name()
		info.Model = e.cfg.LLM.Model
	}
	return info
}
