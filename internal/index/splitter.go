package index

import (
	"fmt"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// Splitter cuts a document into fixed-size rune windows.
// Consecutive passages share exactly Overlap runes and together cover every rune.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// Validate checks 0 <= Overlap < ChunkSize
func (s Splitter) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.Overlap < 0 || s.Overlap >= s.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.ChunkSize, s.Overlap)
	}
	return nil
}

// Split returns the passages of doc in document order
func (s Splitter) Split(doc *model.ReferenceDocument) ([]model.Passage, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if doc.IsEmpty() {
		return nil, nil
	}

	runes := []rune(doc.Text)
	n := len(runes)
	step := s.ChunkSize - s.Overlap

	var passages []model.Passage
	for start := 0; ; start += step {
		end := start + s.ChunkSize
		if end > n {
			end = n
		}
		passages = append(passages, model.Passage{
			Index: len(passages),
			Start: start,
			End:   end,
			Page:  doc.PageAt(start),
			Text:  string(runes[start:end]),
		})
		if end == n {
			break
		}
	}
	return passages, nil
}
