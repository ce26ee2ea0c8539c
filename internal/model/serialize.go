package model

import (
	"cmp"
	"fmt"
	"slices"

	"termeval/internal/domain"
	"termeval/internal/ontology"
)

// Serialized is the resident form of a Model. It holds no reference to the
// ontology and shares no memory with any live Model.
type Serialized struct {
	Hyper        Hyperparams         `json:"hyperparams"`
	Terms        []TermRecord        `json:"terms,omitempty"`
	Applications []ApplicationRecord `json:"applications,omitempty"`
	Embeddings   []EmbeddingRecord   `json:"embeddings,omitempty"`
	Pending      []Observation       `json:"pending,omitempty"`
}

// TermRecord holds the values of the non-primitive terms of one type, in index order.
type TermRecord struct {
	Type   domain.TypeID `json:"type"`
	Values [][]float64   `json:"values"`
}

type ApplicationRecord struct {
	Callee domain.TermPointer `json:"callee"`
	Arg    RefRecord          `json:"arg"`
	Result RefRecord          `json:"result"`
}

// RefRecord encodes a TermReference: Function is set for function references.
type RefRecord struct {
	Function *domain.TermPointer `json:"function,omitempty"`
	Type     domain.TypeID       `json:"type"`
	Vector   []float64           `json:"vector,omitempty"`
}

type EmbeddingRecord struct {
	Term     domain.TermPointer `json:"term"`
	Mean     []float64          `json:"mean"`
	Variance []float64          `json:"variance"`
}

// Empty returns the placeholder value held while a model is checked out.
func Empty() *Serialized { return &Serialized{} }

func toRecord(ref domain.TermReference) RefRecord {
	switch ref := ref.(type) {
	case domain.FunctionRef:
		p := ref.Ptr
		return RefRecord{Function: &p, Type: p.Type}
	case domain.VectorRef:
		return RefRecord{Type: ref.Type, Vector: slices.Clone(ref.Vec)}
	}
	panic(fmt.Sprintf("model: unknown term reference %T", ref))
}

func (r RefRecord) ref() domain.TermReference {
	if r.Function != nil {
		return domain.FunctionRef{Ptr: *r.Function}
	}
	return domain.VectorRef{Type: r.Type, Vec: slices.Clone(r.Vector)}
}

func comparePtr(a, b domain.TermPointer) int {
	return cmp.Or(cmp.Compare(a.Type, b.Type), cmp.Compare(a.Index.Kind, b.Index.Kind), cmp.Compare(a.Index.N, b.Index.N))
}

// Serialize copies the model into its resident form. Output order is deterministic.
func (m *Model) Serialize() *Serialized {
	s := &Serialized{Hyper: m.hyper}
	for t, values := range m.terms {
		rec := TermRecord{Type: t, Values: make([][]float64, len(values))}
		for i, v := range values {
			rec.Values[i] = slices.Clone(v)
		}
		s.Terms = append(s.Terms, rec)
	}
	slices.SortFunc(s.Terms, func(a, b TermRecord) int { return cmp.Compare(a.Type, b.Type) })

	for key, entry := range m.apps {
		s.Applications = append(s.Applications, ApplicationRecord{
			Callee: key.callee,
			Arg:    toRecord(entry.arg),
			Result: toRecord(entry.result),
		})
	}
	slices.SortFunc(s.Applications, func(a, b ApplicationRecord) int {
		return cmp.Or(comparePtr(a.Callee, b.Callee), cmp.Compare(a.Arg.ref().String(), b.Arg.ref().String()))
	})

	for ptr, e := range m.embeddings {
		s.Embeddings = append(s.Embeddings, EmbeddingRecord{Term: ptr, Mean: slices.Clone(e.Mean), Variance: slices.Clone(e.Variance)})
	}
	slices.SortFunc(s.Embeddings, func(a, b EmbeddingRecord) int { return comparePtr(a.Term, b.Term) })

	for _, obs := range m.pending {
		s.Pending = append(s.Pending, Observation{
			Callee:   obs.Callee,
			Features: slices.Clone(obs.Features),
			Target:   slices.Clone(obs.Target),
		})
	}
	return s
}

// Deserialize rebuilds a live model against ctx, validating every record.
// Primitive terms without an embedding record get the prior.
func Deserialize(s *Serialized, ctx *ontology.Context) (*Model, error) {
	if err := s.Hyper.validate(); err != nil {
		return nil, err
	}
	m := newModel(ctx, s.Hyper)
	for _, rec := range s.Terms {
		if !ctx.IsFunctionType(rec.Type) {
			return nil, fmt.Errorf("terms recorded for type %d, which is not a function type", rec.Type)
		}
		if _, dup := m.terms[rec.Type]; dup {
			return nil, fmt.Errorf("terms recorded twice for type %d", rec.Type)
		}
		values := make([][]float64, len(rec.Values))
		for i, v := range rec.Values {
			if len(v) != ctx.FullDim(rec.Type) {
				return nil, fmt.Errorf("term #%dn%d has %d elements, want %d", rec.Type, i, len(v), ctx.FullDim(rec.Type))
			}
			values[i] = slices.Clone(v)
		}
		m.terms[rec.Type] = values
	}
	for _, rec := range s.Embeddings {
		if _, err := m.Value(rec.Term); err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
		n := ctx.FullDim(rec.Term.Type)
		if len(rec.Mean) != n || len(rec.Variance) != n {
			return nil, fmt.Errorf("embedding for %s has the wrong dimension", rec.Term)
		}
		m.embeddings[rec.Term] = &Embedding{Mean: slices.Clone(rec.Mean), Variance: slices.Clone(rec.Variance)}
	}
	for id := 0; id < ctx.NumTypes(); id++ {
		t := domain.TypeID(id)
		for i := range ctx.Primitives(t) {
			ptr := domain.TermPointer{Type: t, Index: domain.Primitive(i)}
			if _, ok := m.embeddings[ptr]; !ok {
				m.embeddings[ptr] = m.prior(t)
			}
		}
		for i := range m.terms[t] {
			ptr := domain.TermPointer{Type: t, Index: domain.NonPrimitive(i)}
			if _, ok := m.embeddings[ptr]; !ok {
				m.embeddings[ptr] = m.prior(t)
			}
		}
	}
	for _, rec := range s.Applications {
		if _, err := m.Value(rec.Callee); err != nil {
			return nil, fmt.Errorf("application: %w", err)
		}
		arg, result := rec.Arg.ref(), rec.Result.ref()
		if _, err := m.refValue(arg); err != nil {
			return nil, fmt.Errorf("application of %s: %w", rec.Callee, err)
		}
		if _, err := m.refValue(result); err != nil {
			return nil, fmt.Errorf("application of %s: %w", rec.Callee, err)
		}
		m.apps[appKey{callee: rec.Callee, arg: arg.String()}] = appEntry{arg: arg, result: result}
	}
	for _, obs := range s.Pending {
		info, err := ctx.FunctionSpaceInfo(obs.Callee.Type)
		if err != nil {
			return nil, fmt.Errorf("pending observation: %w", err)
		}
		if len(obs.Features) != info.FeatureDim || len(obs.Target) != info.OutputDim {
			return nil, fmt.Errorf("pending observation for %s has the wrong shape", obs.Callee)
		}
		m.pending = append(m.pending, Observation{
			Callee:   obs.Callee,
			Features: slices.Clone(obs.Features),
			Target:   slices.Clone(obs.Target),
		})
	}
	return m, nil
}
