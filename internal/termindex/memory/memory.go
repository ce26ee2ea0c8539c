package memory

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"sync"

	"termeval/internal/termindex"
)

// Index is an in-memory brute-force cosine index.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	entries   []termindex.Entry
}

func NewIndex() *Index { return &Index{} }

func (x *Index) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dimension = dimension
	x.vectors = nil
	x.entries = nil
	return nil
}

func (x *Index) Upsert(entries []termindex.Entry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range vectors {
		if len(v) != x.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for i, e := range entries {
		if j := slices.IndexFunc(x.entries, func(old termindex.Entry) bool { return old.Term == e.Term }); j >= 0 {
			x.entries[j] = e
			x.vectors[j] = normalize(vectors[i])
			continue
		}
		x.entries = append(x.entries, e)
		x.vectors = append(x.vectors, normalize(vectors[i]))
	}
	return nil
}

// Search ranks by cosine similarity; ties keep insertion order.
func (x *Index) Search(vector []float64, topK int) ([]termindex.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(vector) != x.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	if topK <= 0 {
		topK = 5
	}
	q := normalize(vector)
	scores := make([]float64, len(x.vectors))
	for i := range x.vectors {
		scores[i] = dot(x.vectors[i], q)
	}
	idxs := argsortDesc(scores)
	topK = min(topK, len(idxs))
	results := make([]termindex.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, termindex.SearchResult{Entry: x.entries[j], Score: scores[j]})
	}
	return results, nil
}

func (x *Index) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = nil
	x.entries = nil
	return nil
}

func normalize(v []float64) []float64 {
	out := slices.Clone(v)
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range idxs {
		idxs[i] = i
	}
	slices.SortStableFunc(idxs, func(a, b int) int { return cmp.Compare(vals[b], vals[a]) })
	return idxs
}
