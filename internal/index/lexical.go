package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// lexicalIndex is an in-memory BM25 index over passage texts
type lexicalIndex struct {
	idx bleve.Index
}

type lexicalDoc struct {
	Text string `json:"text"`
}

func newLexicalIndex(passages []model.Passage) (*lexicalIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	batch := idx.NewBatch()
	for _, p := range passages {
		if err := batch.Index(strconv.Itoa(p.Index), lexicalDoc{Text: p.Text}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index passage %d: %w", p.Index, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("commit lexical index: %w", err)
	}

	return &lexicalIndex{idx: idx}, nil
}

// rank returns passage indices by BM25 relevance, best first
func (l *lexicalIndex) rank(ctx context.Context, text string, size int) ([]int, error) {
	q := bleve.NewMatchQuery(text)
	q.SetField("text")

	res, err := l.idx.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, size, 0, false))
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	ranked := make([]int, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		ranked = append(ranked, i)
	}
	return ranked, nil
}

func (l *lexicalIndex) close() error {
	return l.idx.Close()
}
