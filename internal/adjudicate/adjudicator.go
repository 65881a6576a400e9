// Package adjudicate scores each claim against retrieved filing evidence.
package adjudicate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/util"
	"github.com/ppiankov/alphasentinel/internal/worker"
)

// NoEvidenceRationale is the rationale of a verdict reached without evidence
const NoEvidenceRationale = "No evidence available in the reference document"

const systemPrompt = "You are a strict compliance auditor."

const promptTemplate = `CLAIM MADE BY CEO: "%s"

EVIDENCE FROM SEC FILING (10-K):
"%s"

Task:
1. Does the evidence support, contradict, or add risk context to the claim?
2. Assign a "Risk Score" from 1 (Safe) to 10 (High Discrepancy).
3. Write a short verdict.

%s`

const textFormat = "Return format: Risk Score | Verdict"

const jsonFormat = `Return ONLY a JSON object: {"risk_score": <1-10>, "stance": "supports" | "contradicts" | "risk_context", "verdict": "<short verdict>"}`

// Retriever finds evidence passages for a claim; *index.Index implements it
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]model.ScoredPassage, error)
}

// Options controls adjudication
type Options struct {
	TopK          int
	SnippetLength int
	Workers       int
	JSONMode      bool
	Logger        *slog.Logger
}

// OptionsFromConfig maps configuration onto adjudication options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		TopK:          cfg.Retrieval.TopK,
		SnippetLength: cfg.Adjudication.SnippetLength,
		Workers:       cfg.Adjudication.Workers,
		JSONMode:      cfg.LLM.JSONMode,
	}
}

// Adjudicator compares claims with evidence using the generation provider
type Adjudicator struct {
	provider  llm.Provider
	retriever Retriever
	opts      Options
	logger    *slog.Logger
}

// NewAdjudicator creates an adjudicator over an evidence retriever
func NewAdjudicator(provider llm.Provider, retriever Retriever, opts Options) *Adjudicator {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adjudicator{provider: provider, retriever: retriever, opts: opts, logger: logger}
}

// Adjudicate produces the verdict for one claim.
// Without evidence the verdict carries an unknown risk and no generation call is made.
func (a *Adjudicator) Adjudicate(ctx context.Context, claim model.Claim) (model.Verdict, error) {
	hits, err := a.retriever.Query(ctx, claim.Text, a.opts.TopK)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("retrieve evidence for claim %d: %w", claim.Index, err)
	}

	evidence := model.JoinPassages(hits)
	if strings.TrimSpace(evidence) == "" {
		a.logger.Debug("no evidence for claim", "claim", claim.Index)
		return model.Verdict{
			Claim:      claim,
			Risk:       model.UnknownRisk,
			Stance:     model.StanceUnknown,
			Rationale:  NoEvidenceRationale,
			NoEvidence: true,
		}, nil
	}

	jsonMode := a.opts.JSONMode && a.provider.SupportsJSON()
	resp, err := a.provider.Generate(ctx, llm.GenerateRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(claim.Text, evidence, jsonMode),
		JSON:   jsonMode,
	})
	if err != nil {
		return model.Verdict{}, &llm.GenerationError{Provider: a.provider.Name(), Err: err}
	}

	assessment := ParseVerdict(resp.Text)
	if !assessment.Risk.Known {
		a.logger.Warn("no usable risk score in response", "claim", claim.Index)
	}

	return model.Verdict{
		Claim:           claim,
		EvidenceSnippet: Snippet(evidence, a.opts.SnippetLength),
		Evidence:        hits,
		Risk:            assessment.Risk,
		Stance:          assessment.Stance,
		Rationale:       assessment.Rationale,
		Raw:             resp.Text,
	}, nil
}

// AdjudicateAll adjudicates every claim and returns verdicts in claim order.
// The first failure aborts the call.
func (a *Adjudicator) AdjudicateAll(ctx context.Context, claims []model.Claim) ([]model.Verdict, error) {
	return worker.Map(ctx, a.opts.Workers, claims, a.Adjudicate)
}

// BuildPrompt renders the adjudication prompt
func BuildPrompt(claim, evidence string, jsonMode bool) string {
	format := textFormat
	if jsonMode {
		format = jsonFormat
	}
	return fmt.Sprintf(promptTemplate, claim, evidence, format)
}

// Snippet is the display excerpt: the first n runes of evidence followed by "..."
func Snippet(evidence string, n int) string {
	return util.TruncateRunes(evidence, n) + "..."
}
