// Package model is the live term-application and embedding model that
// expressions are evaluated and simulated against.
//
// A Model borrows its ontology and is only ever held for the duration of one
// operation; between operations it lives on as a Serialized value.
package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"termeval/internal/domain"
	"termeval/internal/ontology"
)

// Hyperparams configure the embedding prior and the observation noise.
type Hyperparams struct {
	PriorVariance float64 `json:"prior_variance"`
	NoiseVariance float64 `json:"noise_variance"`
}

func DefaultHyperparams() Hyperparams {
	return Hyperparams{PriorVariance: 1, NoiseVariance: 0.01}
}

func (h Hyperparams) validate() error {
	if !(h.PriorVariance > 0) || !(h.NoiseVariance > 0) {
		return fmt.Errorf("hyperparameters must be positive, got %+v", h)
	}
	return nil
}

// Embedding is a diagonal Gaussian over a term's full representation.
type Embedding struct {
	Mean     []float64
	Variance []float64
}

// Observation is one evaluated application awaiting a Bayesian update of its callee.
type Observation struct {
	Callee   domain.TermPointer `json:"callee"`
	Features []float64          `json:"features"`
	Target   []float64          `json:"target"`
}

// TermValue pairs a term with its deterministic value.
type TermValue struct {
	Ptr   domain.TermPointer
	Name  string
	Value []float64
}

type appKey struct {
	callee domain.TermPointer
	arg    string
}

type appEntry struct {
	arg    domain.TermReference
	result domain.TermReference
}

// Model is not safe for concurrent use.
type Model struct {
	ctx         *ontology.Context
	hyper       Hyperparams
	terms       map[domain.TypeID][][]float64
	apps        map[appKey]appEntry
	embeddings  map[domain.TermPointer]*Embedding
	elaborators map[domain.TypeID]*mat.Dense
	pending     []Observation
}

// New returns a model with empty tables and prior embeddings for every primitive term.
func New(ctx *ontology.Context, hyper Hyperparams) (*Model, error) {
	if err := hyper.validate(); err != nil {
		return nil, err
	}
	m := newModel(ctx, hyper)
	for id := 0; id < ctx.NumTypes(); id++ {
		t := domain.TypeID(id)
		for i := range ctx.Primitives(t) {
			m.embeddings[domain.TermPointer{Type: t, Index: domain.Primitive(i)}] = m.prior(t)
		}
	}
	return m, nil
}

func newModel(ctx *ontology.Context, hyper Hyperparams) *Model {
	m := &Model{
		ctx:         ctx,
		hyper:       hyper,
		terms:       make(map[domain.TypeID][][]float64),
		apps:        make(map[appKey]appEntry),
		embeddings:  make(map[domain.TermPointer]*Embedding),
		elaborators: make(map[domain.TypeID]*mat.Dense),
	}
	for id := 0; id < ctx.NumTypes(); id++ {
		t := domain.TypeID(id)
		if ctx.IsVectorType(t) {
			continue
		}
		full, comp := ctx.FullDim(t), ctx.CompressedDim(t)
		e := mat.NewDense(full, comp, nil)
		for i := 0; i < comp; i++ {
			e.Set(i, i, 1)
		}
		m.elaborators[t] = e
	}
	return m
}

func (m *Model) Context() *ontology.Context { return m.ctx }

func (m *Model) prior(t domain.TypeID) *Embedding {
	n := m.ctx.FullDim(t)
	e := &Embedding{Mean: make([]float64, n), Variance: make([]float64, n)}
	for i := range e.Variance {
		e.Variance[i] = m.hyper.PriorVariance
	}
	return e
}

// Value returns the deterministic value of a function term.
func (m *Model) Value(ptr domain.TermPointer) ([]float64, error) {
	if ptr.Index.IsPrimitive() {
		p, err := m.ctx.Primitive(ptr)
		if err != nil {
			return nil, err
		}
		return p.Value, nil
	}
	values := m.terms[ptr.Type]
	if ptr.Index.N < 0 || ptr.Index.N >= len(values) {
		return nil, fmt.Errorf("no term %s", ptr)
	}
	return values[ptr.Index.N], nil
}

func (m *Model) refValue(ref domain.TermReference) ([]float64, error) {
	switch ref := ref.(type) {
	case domain.FunctionRef:
		return m.Value(ref.Ptr)
	case domain.VectorRef:
		if !m.ctx.IsVectorType(ref.Type) {
			return nil, fmt.Errorf("vector literal %s: type %d is not a vector type", ref, ref.Type)
		}
		if want := m.ctx.FullDim(ref.Type); len(ref.Vec) != want {
			return nil, fmt.Errorf("vector literal %s: has %d elements, type %s has %d",
				ref, len(ref.Vec), m.ctx.Display(ref.Type), want)
		}
		for _, f := range ref.Vec {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("vector literal %s: elements must be finite", ref)
			}
		}
		return ref.Vec, nil
	}
	return nil, fmt.Errorf("unknown term reference %T", ref)
}

// Apply evaluates callee on arg, memoizing the result. A miss records an
// observation for the next update step; function-typed results become new
// non-primitive terms.
func (m *Model) Apply(callee domain.TermPointer, arg domain.TermReference) (domain.TermReference, error) {
	if !m.ctx.IsFunctionType(callee.Type) {
		return nil, fmt.Errorf("cannot apply %s: type %d is not a function type", callee, callee.Type)
	}
	calleeValue, err := m.Value(callee)
	if err != nil {
		return nil, err
	}
	argType, _ := m.ctx.ArgType(callee.Type)
	if arg.TypeID() != argType {
		return nil, fmt.Errorf("type mismatch: %s expects %s, got %s of type %s",
			callee, m.ctx.Display(argType), arg, m.ctx.Display(arg.TypeID()))
	}
	argValue, err := m.refValue(arg)
	if err != nil {
		return nil, err
	}
	key := appKey{callee: callee, arg: arg.String()}
	if hit, ok := m.apps[key]; ok {
		return hit.result, nil
	}

	info, _ := m.ctx.FunctionSpaceInfo(callee.Type)
	retType, _ := m.ctx.ReturnType(callee.Type)
	feats := features(argValue)
	compressed := matVec(calleeValue, info, feats)

	var result domain.TermReference
	if m.ctx.IsVectorType(retType) {
		result = domain.VectorRef{Type: retType, Vec: compressed}
	} else {
		ptr := domain.TermPointer{Type: retType, Index: domain.NonPrimitive(len(m.terms[retType]))}
		m.terms[retType] = append(m.terms[retType], m.elaborate(retType, compressed))
		emb := m.prior(retType)
		if calleeEmb, ok := m.embeddings[callee]; ok {
			emb.Mean = m.elaborate(retType, matVec(calleeEmb.Mean, info, feats))
		}
		m.embeddings[ptr] = emb
		result = domain.FunctionRef{Ptr: ptr}
	}
	m.apps[key] = appEntry{arg: arg, result: result}
	m.pending = append(m.pending, Observation{Callee: callee, Features: feats, Target: compressed})
	return result, nil
}

// Embedding returns the embedding of a function term.
func (m *Model) Embedding(ptr domain.TermPointer) (*Embedding, error) {
	e, ok := m.embeddings[ptr]
	if !ok {
		return nil, fmt.Errorf("no embedding for term %s", ptr)
	}
	return e, nil
}

func (m *Model) Sample(ptr domain.TermPointer, src rand.Source) ([]float64, error) {
	e, err := m.Embedding(ptr)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(e.Mean))
	for i := range out {
		d := distuv.Normal{Mu: e.Mean[i], Sigma: math.Sqrt(e.Variance[i]), Src: src}
		out[i] = d.Rand()
	}
	return out, nil
}

func (m *Model) FunctionSpaceInfo(t domain.TypeID) (domain.FunctionSpaceInfo, error) {
	return m.ctx.FunctionSpaceInfo(t)
}

func (m *Model) Features(t domain.TypeID, base []float64) ([]float64, error) {
	if want := m.ctx.FullDim(t); want == 0 || len(base) != want {
		return nil, fmt.Errorf("vector of length %d is not in the space of type %d", len(base), t)
	}
	return features(base), nil
}

func (m *Model) ArgType(t domain.TypeID) (domain.TypeID, error) { return m.ctx.ArgType(t) }

func (m *Model) ReturnType(t domain.TypeID) (domain.TypeID, error) { return m.ctx.ReturnType(t) }

func (m *Model) IsVectorType(t domain.TypeID) bool { return m.ctx.IsVectorType(t) }

func (m *Model) ElaboratorMean(t domain.TypeID) (*mat.Dense, error) {
	e, ok := m.elaborators[t]
	if !ok {
		return nil, fmt.Errorf("type %d has no elaborator", t)
	}
	return e, nil
}

// TermValues lists every known term of a function type, primitives first.
func (m *Model) TermValues(t domain.TypeID) []TermValue {
	var out []TermValue
	for i, p := range m.ctx.Primitives(t) {
		out = append(out, TermValue{Ptr: domain.TermPointer{Type: t, Index: domain.Primitive(i)}, Name: p.Name, Value: p.Value})
	}
	for i, v := range m.terms[t] {
		out = append(out, TermValue{Ptr: domain.TermPointer{Type: t, Index: domain.NonPrimitive(i)}, Value: v})
	}
	return out
}

// Pending reports the number of observations awaiting an update step.
func (m *Model) Pending() int { return len(m.pending) }

func (m *Model) elaborate(t domain.TypeID, compressed []float64) []float64 {
	e := m.elaborators[t]
	var full mat.VecDense
	full.MulVec(e, mat.NewVecDense(len(compressed), compressed))
	out := make([]float64, full.Len())
	for i := range out {
		out[i] = full.AtVec(i)
	}
	return out
}

// features appends the constant bias feature.
func features(base []float64) []float64 {
	out := make([]float64, len(base)+1)
	copy(out, base)
	out[len(base)] = 1
	return out
}

func matVec(flat []float64, info domain.FunctionSpaceInfo, feats []float64) []float64 {
	var out mat.VecDense
	out.MulVec(mat.NewDense(info.OutputDim, info.FeatureDim, flat), mat.NewVecDense(len(feats), feats))
	res := make([]float64, out.Len())
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}
