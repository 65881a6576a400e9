package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// apiKeyEnv maps providers to the environment variable holding their key
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// NewProvider creates a generation provider based on configuration
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	switch normalizeProvider(config.Provider) {
	case "openai":
		return NewOpenAIProvider(withEnvKey(config))

	case "anthropic":
		return NewAnthropicProvider(withEnvKey(config))

	case "gemini":
		return NewGeminiProvider(ctx, withEnvKey(config))

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, gemini, ollama)", config.Provider)
	}
}

// NewEmbedder creates an embedding provider based on configuration
func NewEmbedder(ctx context.Context, config Config) (Embedder, error) {
	switch normalizeProvider(config.Provider) {
	case "openai":
		return NewOpenAIProvider(withEnvKey(config))

	case "gemini":
		return NewGeminiProvider(ctx, withEnvKey(config))

	case "ollama":
		return NewOllamaProvider(config)

	case "anthropic":
		return nil, fmt.Errorf("anthropic has no embedding API (use openai, gemini or ollama)")

	case "":
		return nil, fmt.Errorf("no embedding provider configured")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, gemini, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the generation section of model.Config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.LLM.MaxTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
}

// EmbeddingConfigFromModel converts the embedding section of model.Config to llm.Config
func EmbeddingConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:       cfg.Embedding.Provider,
		EmbeddingModel: cfg.Embedding.Model,
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Timeout:        cfg.Embedding.Timeout,
		HTTPProxy:      cfg.HTTP.HTTPProxy,
		HTTPSProxy:     cfg.HTTP.HTTPSProxy,
		NoProxy:        cfg.HTTP.NoProxy,
	}
}

func normalizeProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "claude":
		return "anthropic"
	case "google":
		return "gemini"
	}
	return name
}

// withEnvKey fills a missing API key from the provider's environment variable
func withEnvKey(config Config) Config {
	if config.APIKey != "" {
		return config
	}
	if env, ok := apiKeyEnv[normalizeProvider(config.Provider)]; ok {
		config.APIKey = os.Getenv(env)
	}
	return config
}
