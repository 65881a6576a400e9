package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alphasentinel/internal/cache"
	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/worker"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(ctx, Config{Provider: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(ctx, Config{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(ctx, Config{Provider: "mystery"})
	assert.Error(t, err)

	_, err = NewProvider(ctx, Config{})
	assert.Error(t, err)
}

func TestNewProvider_EnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	p, err := NewProvider(context.Background(), Config{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", p.(*OpenAIProvider).config.APIKey)
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()

	e, err := NewEmbedder(ctx, Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", e.Name())

	_, err = NewEmbedder(ctx, Config{Provider: "anthropic", APIKey: "k"})
	assert.Error(t, err, "anthropic has no embeddings")
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.HTTP.HTTPSProxy = "http://proxy:3128"

	gen := ConfigFromModel(cfg)
	assert.Equal(t, "openai", gen.Provider)
	assert.Equal(t, "gpt-4o", gen.Model)
	assert.Equal(t, "http://proxy:3128", gen.HTTPSProxy)

	emb := EmbeddingConfigFromModel(cfg)
	assert.Equal(t, "text-embedding-3-small", emb.EmbeddingModel)
	assert.Empty(t, emb.Model)
}

func TestGenerationError(t *testing.T) {
	err := &GenerationError{Provider: "openai", Err: errors.New("connection refused")}
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Contains(t, err.Error(), "openai")
	assert.Equal(t, "connection refused", errors.Unwrap(err).Error())
}

// countingEmbedder returns [len(text)] and records every call
type countingEmbedder struct {
	calls [][]string
}

func (c *countingEmbedder) Name() string { return "fake" }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	store := cache.NewMemoryCache(time.Hour, time.Minute)
	e := WithEmbeddingCache(inner, "m", store)

	v, err := e.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, v)

	v, err = e.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, v)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1], "only misses reach the provider")

	assert.Same(t, inner, WithEmbeddingCache(inner, "m", nil))
}

type stubProvider struct {
	calls int
}

func (s *stubProvider) Name() string                         { return "stub" }
func (s *stubProvider) SupportsJSON() bool                   { return false }
func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }
func (s *stubProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	s.calls++
	return &GenerateResponse{Text: "ok"}, nil
}

func TestRateLimitedProvider(t *testing.T) {
	inner := &stubProvider{}
	p := WithRateLimit(inner, worker.NewLimiter(1000, 1))

	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, "stub", p.Name())

	// Cancelled context fails before reaching the provider
	slow := WithRateLimit(inner, worker.NewLimiter(0.001, 1))
	_, _ = slow.Generate(context.Background(), GenerateRequest{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.Generate(ctx, GenerateRequest{})
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)

	assert.Same(t, inner, WithRateLimit(inner, nil))
}
