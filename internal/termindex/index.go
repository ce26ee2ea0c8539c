// Package termindex finds the known terms closest to a sampled vector.
package termindex

import (
	"fmt"
	"strings"

	"termeval/internal/domain"
)

// Entry identifies one indexed term.
type Entry struct {
	Term  domain.TermPointer
	Label string
}

type SearchResult struct {
	Entry Entry
	Score float64
}

func (r SearchResult) String() string {
	var b strings.Builder
	b.WriteString(r.Entry.Term.String())
	if r.Entry.Label != "" {
		b.WriteString(" ")
		b.WriteString(r.Entry.Label)
	}
	fmt.Fprintf(&b, " (%.4f)", r.Score)
	return b.String()
}

// Index stores term values and supports cosine-similarity search.
// Init discards any previous contents.
type Index interface {
	Init(dimension int) error
	Upsert(entries []Entry, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Clear() error
}
