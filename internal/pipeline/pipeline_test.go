package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alphasentinel/internal/adjudicate"
	"github.com/ppiankov/alphasentinel/internal/extract"
	"github.com/ppiankov/alphasentinel/internal/index"
	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
)

var vocab = []string{"revenue", "debt", "margin"}

// wordEmbedder counts vocabulary words, one dimension per word
type wordEmbedder struct{}

func (wordEmbedder) Name() string { return "words" }

func (wordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(vocab))
		lower := strings.ToLower(t)
		for j, w := range vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		out[i] = v
	}
	return out, nil
}

// scriptedProvider lists fixed claims and flags evidence that mentions a default
type scriptedProvider struct {
	claims     string
	extractErr error

	mu      sync.Mutex
	prompts []string
}

func (p *scriptedProvider) Name() string                         { return "scripted" }
func (p *scriptedProvider) SupportsJSON() bool                   { return false }
func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()

	if strings.Contains(req.Prompt, "TRANSCRIPT:") {
		if p.extractErr != nil {
			return nil, p.extractErr
		}
		return &llm.GenerateResponse{Text: p.claims}, nil
	}
	if strings.Contains(req.Prompt, "default") {
		return &llm.GenerateResponse{Text: "9 | Contradicts the filing, which reports a covenant default"}, nil
	}
	return &llm.GenerateResponse{Text: "2 | Supported by the filing"}, nil
}

const threeClaims = `["Revenue will grow 40% next year", "Our debt is fully repaid", "Margin will expand again"]`

// filing holds one topic per 40-rune passage
func filing() *model.ReferenceDocument {
	pad := func(s string) string { return fmt.Sprintf("%-39s", s) }
	return model.NewReferenceDocument("10k.txt", []string{
		pad("Revenue grew 38% in fiscal 2023."),
		pad("A debt covenant default occurred."),
		pad("Gross margin expanded to 41%."),
	})
}

func newTestPipeline(t *testing.T, provider *scriptedProvider) *Pipeline {
	t.Helper()

	idx, err := index.Build(context.Background(), filing(), wordEmbedder{}, index.Options{ChunkSize: 40, Overlap: 0})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	cfg := model.DefaultConfig()
	extractor := extract.NewClaimExtractor(provider, extract.OptionsFromConfig(cfg))
	adjudicator := adjudicate.NewAdjudicator(provider, idx, adjudicate.Options{TopK: 1, Workers: 2})
	return New(cfg, extractor, adjudicator)
}

func TestPipeline_EndToEnd(t *testing.T) {
	provider := &scriptedProvider{claims: threeClaims}
	p := newTestPipeline(t, provider)

	var stages []Stage
	p.SetObserver(func(stage Stage, claims int) { stages = append(stages, stage) })

	run, err := p.Run(context.Background(), "CEO: revenue will grow 40%, our debt is repaid, margin will expand.")
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageExtractingClaims, StageVerifyingClaims, StageDone}, stages)
	assert.NotEmpty(t, run.ID)
	require.Len(t, run.Claims, 3)
	require.Len(t, run.Verdicts, 3)

	for i, v := range run.Verdicts {
		assert.Equal(t, run.Claims[i], v.Claim)
		assert.True(t, v.Risk.Known)
	}

	// The contradicted claim scores highest
	assert.Equal(t, 9, run.Verdicts[1].Risk.Value)
	assert.Greater(t, run.Verdicts[1].Risk.Value, run.Verdicts[0].Risk.Value)
	assert.Greater(t, run.Verdicts[1].Risk.Value, run.Verdicts[2].Risk.Value)
	assert.Equal(t, model.StanceContradicts, run.Verdicts[1].Stance)
	assert.False(t, run.CompletedAt.Before(run.StartedAt))
}

func TestPipeline_NoClaims(t *testing.T) {
	provider := &scriptedProvider{claims: "[]"}
	p := newTestPipeline(t, provider)

	var stages []Stage
	p.SetObserver(func(stage Stage, claims int) { stages = append(stages, stage) })

	run, err := p.Run(context.Background(), "   ")
	require.NoError(t, err)

	assert.Empty(t, run.Claims)
	assert.NotNil(t, run.Verdicts)
	assert.Empty(t, run.Verdicts)
	assert.Equal(t, []Stage{StageExtractingClaims, StageVerifyingClaims, StageDone}, stages)
	assert.Empty(t, provider.prompts)
}

func TestPipeline_GenerationFailure(t *testing.T) {
	provider := &scriptedProvider{extractErr: errors.New("connection refused")}
	p := newTestPipeline(t, provider)

	var stages []Stage
	p.SetObserver(func(stage Stage, claims int) { stages = append(stages, stage) })

	run, err := p.Run(context.Background(), "Revenue will grow.")
	require.Error(t, err)
	assert.Nil(t, run)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, StageExtractingClaims, runErr.Stage)
	assert.True(t, errors.Is(err, llm.ErrGenerationFailed))
	assert.Equal(t, []Stage{StageExtractingClaims}, stages)
}

type countingAdjudicator struct{ drop bool }

func (c countingAdjudicator) AdjudicateAll(ctx context.Context, claims []model.Claim) ([]model.Verdict, error) {
	n := len(claims)
	if c.drop && n > 0 {
		n--
	}
	return make([]model.Verdict, n), nil
}

type staticExtractor []model.Claim

func (s staticExtractor) Extract(ctx context.Context, transcript string) ([]model.Claim, error) {
	return s, nil
}

func TestPipeline_VerdictCountMismatch(t *testing.T) {
	p := New(nil, staticExtractor{{Text: "a"}, {Text: "b", Index: 1}}, countingAdjudicator{drop: true})

	run, err := p.Run(context.Background(), "text")
	assert.Nil(t, run)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, StageVerifyingClaims, runErr.Stage)
}

func TestPipeline_RunFile(t *testing.T) {
	provider := &scriptedProvider{claims: threeClaims}
	p := newTestPipeline(t, provider)

	var stages []Stage
	p.SetObserver(func(stage Stage, claims int) { stages = append(stages, stage) })

	_, err := p.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrMissingTranscript)
	assert.Empty(t, stages)

	path := filepath.Join(t.TempDir(), "call.txt")
	require.NoError(t, os.WriteFile(path, []byte("Revenue will grow 40%."), 0644))
	run, err := p.RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, run.Verdicts, 3)
}

func TestPipeline_Idempotent(t *testing.T) {
	transcript := "CEO: revenue will grow 40%, our debt is repaid, margin will expand."

	first, err := newTestPipeline(t, &scriptedProvider{claims: threeClaims}).Run(context.Background(), transcript)
	require.NoError(t, err)
	second, err := newTestPipeline(t, &scriptedProvider{claims: threeClaims}).Run(context.Background(), transcript)
	require.NoError(t, err)

	require.Equal(t, len(first.Verdicts), len(second.Verdicts))
	for i := range first.Verdicts {
		assert.Equal(t, first.Verdicts[i].Risk, second.Verdicts[i].Risk)
		assert.Equal(t, first.Verdicts[i].Evidence, second.Verdicts[i].Evidence)
	}
}

func TestRenderer_Outputs(t *testing.T) {
	provider := &scriptedProvider{claims: threeClaims}
	p := newTestPipeline(t, provider)

	run, err := p.Run(context.Background(), "CEO remarks")
	require.NoError(t, err)

	report := p.BuildReport(run, ReportSources{
		Transcript: "data/tesla_call.txt",
		Filing:     "data/10k.txt",
		Index:      model.IndexInfo{Ready: true, Passages: 3, Dimension: 3},
		LLM:        model.LLMInfo{Provider: "scripted", EmbeddingProvider: "words"},
	})
	assert.Equal(t, "tesla call", report.Subject)
	assert.Equal(t, 3, report.Summary.TotalClaims)
	assert.Equal(t, 1, report.Summary.HighRiskCount)

	var md bytes.Buffer
	require.NoError(t, NewRenderer(true, false).WriteMarkdown(&md, report))
	assert.Contains(t, md.String(), "| 3 | 1 High Risk | 5.7/10 |")
	assert.Contains(t, md.String(), "### Claim #2")
	assert.Contains(t, md.String(), "Evidence (10-K, p. 2)")
	assert.Contains(t, md.String(), "Generated by AlphaSentinel")

	var summary bytes.Buffer
	NewRenderer(false, false).RenderSummary(&summary, report)
	assert.Contains(t, summary.String(), "CLAIM: Our debt is fully repaid")
	assert.Contains(t, summary.String(), "VERDICT: 9 | Contradicts")

	var raw bytes.Buffer
	require.NoError(t, NewRenderer(false, false).WriteJSON(&raw, report))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.NotContains(t, raw.String(), `"raw"`)
	assert.NotEmpty(t, run.Verdicts[0].Raw, "stripping must not touch the run")

	raw.Reset()
	require.NoError(t, NewRenderer(false, true).WriteJSON(&raw, report))
	assert.Contains(t, raw.String(), `"raw"`)
}

func TestRenderer_Files(t *testing.T) {
	dir := t.TempDir()
	report := New(nil, nil, nil).BuildReport(nil, ReportSources{})
	r := NewRenderer(false, false)

	require.NoError(t, r.RenderJSON(report, filepath.Join(dir, "out", "report.json")))
	require.NoError(t, r.RenderMarkdown(report, filepath.Join(dir, "out", "report.md")))

	md, err := os.ReadFile(filepath.Join(dir, "out", "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "No checkable claims")
	assert.Contains(t, string(md), "10.0/10")
}
