// Package extract turns a transcript into a short list of checkable claims.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/util"
)

const systemPrompt = "You are a financial analyst reviewing earnings call transcripts."

const promptTemplate = `Read the following earnings call transcript.
Extract the top %d most important "Forward Looking Statements" or aggressive claims made by the executives.
Focus on specific numbers, growth targets, or product timelines.

%s

TRANSCRIPT:
%s`

const listInstruction = `Return ONLY a list of strings. Example: ["We expect 50% growth", "Cybertruck delivery in Q3"]`

const jsonInstruction = `Return ONLY a JSON object of the form {"claims": ["We expect 50% growth", "Cybertruck delivery in Q3"]}`

// Options controls claim extraction
type Options struct {
	MaxTranscriptChars int
	MaxClaims          int
	JSONMode           bool // Ask for a JSON object when the provider supports it
	Logger             *slog.Logger
}

// OptionsFromConfig maps configuration onto extraction options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		MaxTranscriptChars: cfg.Extraction.MaxTranscriptChars,
		MaxClaims:          cfg.Extraction.MaxClaims,
		JSONMode:           cfg.LLM.JSONMode,
	}
}

// ClaimExtractor asks the generation provider for the transcript's key claims
type ClaimExtractor struct {
	provider llm.Provider
	opts     Options
	logger   *slog.Logger
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(provider llm.Provider, opts Options) *ClaimExtractor {
	if opts.MaxTranscriptChars <= 0 {
		opts.MaxTranscriptChars = 15000
	}
	if opts.MaxClaims <= 0 {
		opts.MaxClaims = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimExtractor{provider: provider, opts: opts, logger: logger}
}

// Extract returns at most MaxClaims claims in the order the model listed them.
// A blank transcript yields no claims and no generation call.
func (e *ClaimExtractor) Extract(ctx context.Context, transcript string) ([]model.Claim, error) {
	if strings.TrimSpace(transcript) == "" {
		return []model.Claim{}, nil
	}

	text := util.TruncateRunes(transcript, e.opts.MaxTranscriptChars)
	jsonMode := e.opts.JSONMode && e.provider.SupportsJSON()

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(text, e.opts.MaxClaims, jsonMode),
		JSON:   jsonMode,
	})
	if err != nil {
		return nil, &llm.GenerationError{Provider: e.provider.Name(), Err: err}
	}

	texts, parsed := ParseClaimList(resp.Text)
	if !parsed {
		e.logger.Warn("claim list unparseable, using whole response as one claim", "chars", len(resp.Text))
	}

	source := model.ClaimSourceParsed
	if !parsed {
		source = model.ClaimSourceFallback
	}

	texts = normalizeClaims(texts, e.opts.MaxClaims)
	claims := make([]model.Claim, len(texts))
	for i, t := range texts {
		claims[i] = model.Claim{Text: t, Index: i, Source: source}
	}

	e.logger.Debug("claims extracted", "count", len(claims), "source", source, "tokens", resp.TokensUsed)
	return claims, nil
}

// BuildPrompt renders the extraction prompt for an already truncated transcript
func BuildPrompt(transcript string, maxClaims int, jsonMode bool) string {
	instruction := listInstruction
	if jsonMode {
		instruction = jsonInstruction
	}
	return fmt.Sprintf(promptTemplate, maxClaims, instruction, transcript)
}

// normalizeClaims trims, drops empties, removes case-insensitive duplicates and caps the list
func normalizeClaims(texts []string, max int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(texts))

	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}
