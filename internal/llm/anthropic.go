package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// AnthropicProvider implements Provider for Anthropic Claude models.
// Anthropic has no embedding endpoint, so it only serves generation.
type AnthropicProvider struct {
	client *anthropic.Client
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	var opts []anthropic.ClientOption
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(config.BaseURL, "/")))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(config.APIKey, opts...),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// SupportsJSON is false: the Messages API has no JSON response mode
func (p *AnthropicProvider) SupportsJSON() bool {
	return false
}

// IsAvailable checks if the provider is properly configured
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	// A one-token completion on the cheapest model
	_, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model("claude-3-5-haiku-20241022"),
		MaxTokens: 1,
		Messages:  []anthropic.Message{userMessage("Hi")},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Anthropic API check failed: %v\n", err)
		return false
	}
	return true
}

// Generate produces a completion using the Messages API
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := resolveModel(req.Model, p.config.Model, defaultAnthropicModel)
	maxTokens := resolveMaxTokens(req.MaxTokens, p.config.MaxTokens)

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := float32(0)
	resp, err := p.client.CreateMessages(ctxWithTimeout, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      req.System,
		Messages:    []anthropic.Message{userMessage(req.Prompt)},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Text != nil {
			text.WriteString(*c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no content in Anthropic response")
	}

	return &GenerateResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      string(resp.Model),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func userMessage(text string) anthropic.Message {
	return anthropic.Message{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewTextMessageContent(text),
		},
	}
}
