package adjudicate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
)

// fakeRetriever returns fixed passages and records queries
type fakeRetriever struct {
	hits []model.ScoredPassage
	err  error

	mu      sync.Mutex
	queries []string
}

func (f *fakeRetriever) Query(ctx context.Context, text string, k int) ([]model.ScoredPassage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

// fakeProvider answers from a function of the prompt
type fakeProvider struct {
	respond func(prompt string) (string, error)
	json    bool

	mu    sync.Mutex
	calls int
	reqs  []llm.GenerateRequest
}

func (f *fakeProvider) Name() string                         { return "fake" }
func (f *fakeProvider) SupportsJSON() bool                   { return f.json }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	f.calls++
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	text, err := f.respond(req.Prompt)
	if err != nil {
		return nil, err
	}
	return &llm.GenerateResponse{Text: text}, nil
}

func passages(texts ...string) []model.ScoredPassage {
	out := make([]model.ScoredPassage, len(texts))
	for i, t := range texts {
		out[i] = model.ScoredPassage{Passage: model.Passage{Index: i, Text: t}, Score: 1 - float64(i)/10}
	}
	return out
}

func TestAdjudicate_ScoresClaim(t *testing.T) {
	retriever := &fakeRetriever{hits: passages("Revenue declined 12%.", "Backlog fell.", "Unrelated.")}
	provider := &fakeProvider{respond: func(string) (string, error) {
		return "8 | The filing contradicts the growth claim.", nil
	}}
	a := NewAdjudicator(provider, retriever, Options{})

	claim := model.Claim{Text: "Revenue grew 20%", Index: 0}
	v, err := a.Adjudicate(context.Background(), claim)
	require.NoError(t, err)

	assert.Equal(t, claim, v.Claim)
	assert.Equal(t, model.NewRiskScore(8), v.Risk)
	assert.Equal(t, model.StanceContradicts, v.Stance)
	assert.Equal(t, "The filing contradicts the growth claim.", v.Rationale)
	assert.Len(t, v.Evidence, 2, "top-2 passages by default")
	assert.Equal(t, "Revenue declined 12%. Backlog fell....", v.EvidenceSnippet)
	assert.False(t, v.NoEvidence)

	require.Len(t, provider.reqs, 1)
	prompt := provider.reqs[0].Prompt
	assert.Contains(t, prompt, `CLAIM MADE BY CEO: "Revenue grew 20%"`)
	assert.Contains(t, prompt, "Revenue declined 12%. Backlog fell.")
	assert.NotContains(t, prompt, "Unrelated.")
	assert.Contains(t, prompt, "Risk Score | Verdict")
}

func TestAdjudicate_SnippetUsesFullEvidenceForScoring(t *testing.T) {
	long := strings.Repeat("a", 250) + strings.Repeat("b", 150)
	retriever := &fakeRetriever{hits: passages(long)}
	provider := &fakeProvider{respond: func(string) (string, error) { return "3 | fine", nil }}

	v, err := NewAdjudicator(provider, retriever, Options{SnippetLength: 200}).
		Adjudicate(context.Background(), model.Claim{Text: "c"})
	require.NoError(t, err)

	assert.Equal(t, 203, len([]rune(v.EvidenceSnippet)))
	assert.True(t, strings.HasSuffix(v.EvidenceSnippet, "..."))
	assert.NotContains(t, v.EvidenceSnippet, "b")
	assert.Contains(t, provider.reqs[0].Prompt, strings.Repeat("b", 150), "prompt sees the whole evidence")
}

func TestAdjudicate_NoEvidence(t *testing.T) {
	provider := &fakeProvider{respond: func(string) (string, error) { return "1 | x", nil }}
	a := NewAdjudicator(provider, &fakeRetriever{}, Options{})

	v, err := a.Adjudicate(context.Background(), model.Claim{Text: "Revenue grew"})
	require.NoError(t, err)

	assert.True(t, v.NoEvidence)
	assert.False(t, v.Risk.Known)
	assert.Equal(t, model.StanceUnknown, v.Stance)
	assert.Equal(t, NoEvidenceRationale, v.Rationale)
	assert.Equal(t, 0, provider.calls, "no generation call without evidence")
}

func TestAdjudicate_RetrievalFailure(t *testing.T) {
	boom := errors.New("embedding service down")
	provider := &fakeProvider{respond: func(string) (string, error) { return "1", nil }}
	a := NewAdjudicator(provider, &fakeRetriever{err: boom}, Options{})

	_, err := a.Adjudicate(context.Background(), model.Claim{Text: "c"})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, provider.calls)
}

func TestAdjudicate_GenerationFailure(t *testing.T) {
	provider := &fakeProvider{respond: func(string) (string, error) { return "", errors.New("timeout") }}
	a := NewAdjudicator(provider, &fakeRetriever{hits: passages("e")}, Options{})

	_, err := a.Adjudicate(context.Background(), model.Claim{Text: "c"})
	assert.True(t, errors.Is(err, llm.ErrGenerationFailed))
}

func TestAdjudicate_JSONMode(t *testing.T) {
	provider := &fakeProvider{json: true, respond: func(string) (string, error) {
		return `{"risk_score": 6, "stance": "risk_context", "verdict": "Filing lists supply risks."}`, nil
	}}
	a := NewAdjudicator(provider, &fakeRetriever{hits: passages("Supply risk.")}, Options{JSONMode: true})

	v, err := a.Adjudicate(context.Background(), model.Claim{Text: "c"})
	require.NoError(t, err)

	assert.True(t, provider.reqs[0].JSON)
	assert.Equal(t, model.NewRiskScore(6), v.Risk)
	assert.Equal(t, model.StanceRiskContext, v.Stance)
	assert.Equal(t, "Filing lists supply risks.", v.Rationale)
}

func TestAdjudicateAll_PreservesOrder(t *testing.T) {
	retriever := &fakeRetriever{hits: passages("evidence")}
	provider := &fakeProvider{respond: func(prompt string) (string, error) {
		// Earlier claims answer slower so completion order is reversed
		switch {
		case strings.Contains(prompt, "claim-0"):
			time.Sleep(30 * time.Millisecond)
			return "2 | a", nil
		case strings.Contains(prompt, "claim-1"):
			time.Sleep(15 * time.Millisecond)
			return "5 | b", nil
		default:
			return "9 | c", nil
		}
	}}
	a := NewAdjudicator(provider, retriever, Options{Workers: 3})

	claims := []model.Claim{{Text: "claim-0", Index: 0}, {Text: "claim-1", Index: 1}, {Text: "claim-2", Index: 2}}
	verdicts, err := a.AdjudicateAll(context.Background(), claims)
	require.NoError(t, err)

	require.Len(t, verdicts, 3)
	for i, v := range verdicts {
		assert.Equal(t, claims[i], v.Claim)
	}
	assert.Equal(t, []int{2, 5, 9}, []int{verdicts[0].Risk.Value, verdicts[1].Risk.Value, verdicts[2].Risk.Value})
}

func TestAdjudicateAll_Empty(t *testing.T) {
	a := NewAdjudicator(&fakeProvider{}, &fakeRetriever{}, Options{})
	verdicts, err := a.AdjudicateAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, verdicts)
}

func TestAdjudicateAll_FirstErrorAborts(t *testing.T) {
	provider := &fakeProvider{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "bad") {
			return "", errors.New("refused")
		}
		return "1 | ok", nil
	}}
	a := NewAdjudicator(provider, &fakeRetriever{hits: passages("e")}, Options{})

	verdicts, err := a.AdjudicateAll(context.Background(), []model.Claim{{Text: "good"}, {Text: "bad", Index: 1}, {Text: "never", Index: 2}})
	assert.Error(t, err)
	assert.Nil(t, verdicts)
}

func TestAdjudicate_Deterministic(t *testing.T) {
	retriever := &fakeRetriever{hits: passages("Debt rose.", "Margins fell.")}
	provider := &fakeProvider{respond: func(prompt string) (string, error) { return "4 | Mixed evidence.", nil }}
	a := NewAdjudicator(provider, retriever, Options{})

	claims := []model.Claim{{Text: "a"}, {Text: "b", Index: 1}}
	first, err := a.AdjudicateAll(context.Background(), claims)
	require.NoError(t, err)
	second, err := a.AdjudicateAll(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
