package model

import "strings"

// ReferenceDocument is the authoritative filing claims are checked against
type ReferenceDocument struct {
	Source string   `json:"source"` // File path or URL it was loaded from
	Pages  []string `json:"-"`      // Page texts (a flat document has one page)
	Text   string   `json:"-"`      // Pages joined by "\n"

	pageStarts []int // rune offset where each page begins in Text
}

// NewReferenceDocument builds a document from page texts
func NewReferenceDocument(source string, pages []string) *ReferenceDocument {
	starts := make([]int, len(pages))
	offset := 0
	for i, p := range pages {
		starts[i] = offset
		offset += len([]rune(p)) + 1 // page separator
	}

	return &ReferenceDocument{
		Source:     source,
		Pages:      pages,
		Text:       strings.Join(pages, "\n"),
		pageStarts: starts,
	}
}

// IsEmpty reports whether the document carries no usable text
func (d *ReferenceDocument) IsEmpty() bool {
	return d == nil || strings.TrimSpace(d.Text) == ""
}

// PageAt returns the 1-based page containing the given rune offset
func (d *ReferenceDocument) PageAt(offset int) int {
	if d == nil || len(d.pageStarts) == 0 {
		return 0
	}
	page := 1
	for i, start := range d.pageStarts {
		if offset >= start {
			page = i + 1
		} else {
			break
		}
	}
	return page
}

// Passage is a bounded, overlapping slice of the reference document
type Passage struct {
	Index int    `json:"index"`          // Position in document order (0-based)
	Start int    `json:"start"`          // Rune offset, inclusive
	End   int    `json:"end"`            // Rune offset, exclusive
	Page  int    `json:"page,omitempty"` // 1-based page of Start
	Text  string `json:"text"`
}

// ScoredPassage is a passage returned by a query with its relevance
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"` // Higher is more relevant
}

// JoinPassages concatenates passage texts in the given order
func JoinPassages(hits []ScoredPassage) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Passage.Text)
	}
	return strings.Join(parts, " ")
}
