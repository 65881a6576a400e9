// Package index holds the evidence index: reference passages with their
// embeddings, queried by similarity to a claim.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ppiankov/alphasentinel/internal/llm"
	"github.com/ppiankov/alphasentinel/internal/model"
)

// ErrMissingReferenceDocument is returned with an empty index when there is no filing text
var ErrMissingReferenceDocument = errors.New("reference document missing or empty")

// rrfK dampens rank differences in reciprocal-rank fusion
const rrfK = 60

// Options controls index build
type Options struct {
	ChunkSize int
	Overlap   int
	BatchSize int
	Hybrid    bool // Also keep a BM25 index and fuse rankings
	Logger    *slog.Logger
}

// OptionsFromConfig maps configuration onto build options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		ChunkSize: cfg.Index.ChunkSize,
		Overlap:   cfg.Index.ChunkOverlap,
		BatchSize: cfg.Index.EmbedBatchSize,
		Hybrid:    cfg.Retrieval.Hybrid,
	}
}

// Index is read-only after Build and safe for concurrent queries
type Index struct {
	passages []model.Passage
	vectors  [][]float32
	norms    []float64
	dim      int
	embedder llm.Embedder
	lexical  *lexicalIndex
	logger   *slog.Logger
}

// Build splits doc, embeds every passage and returns the index.
// A missing or blank doc yields an empty, usable index and ErrMissingReferenceDocument.
func Build(ctx context.Context, doc *model.ReferenceDocument, embedder llm.Embedder, opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idx := &Index{embedder: embedder, logger: logger}
	if doc.IsEmpty() {
		return idx, ErrMissingReferenceDocument
	}

	passages, err := Splitter{ChunkSize: opts.ChunkSize, Overlap: opts.Overlap}.Split(doc)
	if err != nil {
		return nil, err
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	vectors := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += batchSize {
		end := start + batchSize
		if end > len(passages) {
			end = len(passages)
		}

		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}

		batch, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d passages", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		logger.Debug("embedded passage batch", "from", start, "to", end-1, "total", len(passages))
	}

	dim := len(vectors[0])
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("passage %d has dimension %d, want %d", i, len(v), dim)
		}
		norms[i] = norm(v)
	}

	idx.passages = passages
	idx.vectors = vectors
	idx.norms = norms
	idx.dim = dim

	if opts.Hybrid {
		lex, err := newLexicalIndex(passages)
		if err != nil {
			return nil, err
		}
		idx.lexical = lex
	}

	logger.Debug("evidence index built", "source", doc.Source, "passages", len(passages), "dimension", dim, "hybrid", opts.Hybrid)
	return idx, nil
}

// Query returns up to k passages most relevant to text, best first.
// A nil or empty index returns no passages without calling the embedder.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]model.ScoredPassage, error) {
	if idx == nil || len(idx.passages) == 0 || k <= 0 {
		return []model.ScoredPassage{}, nil
	}

	vecs, err := idx.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != idx.dim {
		return nil, fmt.Errorf("query embedding has wrong shape (want 1x%d)", idx.dim)
	}

	scored := idx.vectorRanking(vecs[0])

	if idx.lexical != nil {
		scored, err = idx.fuse(ctx, text, scored)
		if err != nil {
			return nil, err
		}
	}

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// vectorRanking scores every passage by cosine similarity; ties keep passage order
func (idx *Index) vectorRanking(query []float32) []model.ScoredPassage {
	qNorm := norm(query)
	scored := make([]model.ScoredPassage, len(idx.passages))
	for i, p := range idx.passages {
		scored[i] = model.ScoredPassage{
			Passage: p,
			Score:   cosine(query, qNorm, idx.vectors[i], idx.norms[i]),
		}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	return scored
}

// fuse combines the vector ranking with BM25 by reciprocal-rank fusion
func (idx *Index) fuse(ctx context.Context, text string, vector []model.ScoredPassage) ([]model.ScoredPassage, error) {
	lexRanked, err := idx.lexical.rank(ctx, text, len(idx.passages))
	if err != nil {
		return nil, err
	}

	fused := make(map[int]float64, len(vector))
	for rank, sp := range vector {
		fused[sp.Passage.Index] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, i := range lexRanked {
		fused[i] += 1.0 / float64(rrfK+rank+1)
	}

	out := make([]model.ScoredPassage, 0, len(idx.passages))
	for _, p := range idx.passages {
		out = append(out, model.ScoredPassage{Passage: p, Score: fused[p.Index]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out, nil
}

// Len returns the number of indexed passages
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.passages)
}

// Dimension returns the embedding dimension, 0 when empty
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// Hybrid reports whether lexical fusion is active
func (idx *Index) Hybrid() bool {
	return idx != nil && idx.lexical != nil
}

// Passages returns a copy of the indexed passages in document order
func (idx *Index) Passages() []model.Passage {
	if idx == nil {
		return nil
	}
	return append([]model.Passage(nil), idx.passages...)
}

// Info summarizes the index for reports
func (idx *Index) Info() model.IndexInfo {
	return model.IndexInfo{
		Ready:     idx.Len() > 0,
		Passages:  idx.Len(),
		Dimension: idx.Dimension(),
		Hybrid:    idx.Hybrid(),
	}
}

// Close releases the lexical index, if any
func (idx *Index) Close() error {
	if idx == nil || idx.lexical == nil {
		return nil
	}
	return idx.lexical.close()
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
