package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"termeval/internal/domain"
	"termeval/internal/termindex"
)

// Index is a minimal REST client to Qdrant. Init recreates the collection
// with cosine distance, since each search runs over terms of one type.
type Index struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (x *Index) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", x.url, x.collection)
}

func (x *Index) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := x.Clear(); err != nil {
		return err
	}
	x.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return x.do(http.MethodPut, x.collectionURL(), body, nil)
}

type payload struct {
	Type  int    `json:"type"`
	Kind  int    `json:"kind"`
	N     int    `json:"n"`
	Label string `json:"label"`
}

// pointID packs a term index into a Qdrant unsigned id: even ids are
// primitive terms, odd ids non-primitive.
func pointID(idx domain.TermIndex) uint64 {
	return uint64(idx.N)*2 + uint64(idx.Kind)
}

func (x *Index) Upsert(entries []termindex.Entry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if len(vectors[i]) != x.dimension {
			return errors.New("vector dimension mismatch")
		}
		points[i] = map[string]any{
			"id":     pointID(e.Term.Index),
			"vector": vectors[i],
			"payload": payload{
				Type:  int(e.Term.Type),
				Kind:  int(e.Term.Index.Kind),
				N:     e.Term.Index.N,
				Label: e.Label,
			},
		}
	}
	return x.do(http.MethodPut, x.collectionURL()+"/points?wait=true", map[string]any{"points": points}, nil)
}

func (x *Index) Search(vector []float64, topK int) ([]termindex.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := x.do(http.MethodPost, x.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]termindex.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		ptr := domain.TermPointer{
			Type:  domain.TypeID(r.Payload.Type),
			Index: domain.TermIndex{Kind: domain.IndexKind(r.Payload.Kind), N: r.Payload.N},
		}
		results = append(results, termindex.SearchResult{
			Entry: termindex.Entry{Term: ptr, Label: r.Payload.Label},
			Score: r.Score,
		})
	}
	return results, nil
}

// Clear drops the collection. A missing collection is not an error.
func (x *Index) Clear() error {
	err := x.do(http.MethodDelete, x.collectionURL(), nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

type statusError struct {
	method, url string
	code        int
	status      string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (x *Index) do(method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
