package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the generation capability: text in, text out
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces a completion for the prompt at minimum temperature
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// SupportsJSON reports whether the provider can be asked for a JSON-only response
	SupportsJSON() bool

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Embedder is the embedding capability: text in, fixed-length vector out.
// The same Embedder must serve both index build and queries.
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateRequest contains the input for a completion
type GenerateRequest struct {
	// Prompt is the user message
	Prompt string

	// System is an optional system instruction
	System string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// JSON asks for a JSON-only response when SupportsJSON is true
	JSON bool
}

// GenerateResponse contains the completion output
type GenerateResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "gemini", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// EmbeddingModel is used by providers that also implement Embedder
	EmbeddingModel string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   60,
		MaxTokens: 1000,
	}
}

// ErrGenerationFailed matches any *GenerationError via errors.Is
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError reports that the generation capability errored or was unreachable
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrGenerationFailed) match
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// resolveModel picks the request model, then the configured one, then the fallback
func resolveModel(req, configured, fallback string) string {
	if req != "" {
		return req
	}
	if configured != "" {
		return configured
	}
	return fallback
}

// resolveMaxTokens picks the request limit, then the configured one, then 1000
func resolveMaxTokens(req, configured int) int {
	if req > 0 {
		return req
	}
	if configured > 0 {
		return configured
	}
	return 1000
}
