// Package simulate propagates samples drawn from term embeddings through
// expression trees. All returned vectors are fully expanded.
package simulate

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"termeval/internal/domain"
	"termeval/internal/expr"
)

// Simulator draws one sample per function-term leaf from src.
type Simulator struct {
	space domain.VectorSpace
	src   rand.Source
}

func New(space domain.VectorSpace, src rand.Source) *Simulator {
	return &Simulator{space: space, src: src}
}

func (s *Simulator) Expression(e expr.Expression) (domain.TypedVector, error) {
	switch e := e.(type) {
	case *expr.Ref:
		return s.TermReference(e.Term)
	case *expr.App:
		return s.App(e)
	}
	panic("simulate: unknown expression type")
}

// TermReference samples function terms; vector literals stand in for a sample as-is.
func (s *Simulator) TermReference(ref domain.TermReference) (domain.TypedVector, error) {
	switch ref := ref.(type) {
	case domain.FunctionRef:
		return s.term(ref.Ptr)
	case domain.VectorRef:
		return domain.TypedVector{Type: ref.Type, Vec: ref.Vec}, nil
	}
	panic("simulate: unknown term reference type")
}

func (s *Simulator) Func(f expr.FuncExpression) (domain.TypedVector, error) {
	switch f := f.(type) {
	case *expr.Func:
		return s.term(f.Ptr)
	case *expr.App:
		v, err := s.App(f)
		if err != nil {
			return domain.TypedVector{}, err
		}
		if s.space.IsVectorType(v.Type) {
			return domain.TypedVector{}, &expr.EvaluationError{Op: "simulating", Expr: f.String()}
		}
		return v, nil
	}
	panic("simulate: unknown callee type")
}

// App multiplies the callee's sampled matrix by the argument's features and
// expands the product into the full space of the return type.
func (s *Simulator) App(a *expr.App) (domain.TypedVector, error) {
	fn, err := s.Func(a.Func())
	if err != nil {
		return domain.TypedVector{}, err
	}
	arg, err := s.Expression(a.Arg())
	if err != nil {
		return domain.TypedVector{}, err
	}

	info, err := s.space.FunctionSpaceInfo(fn.Type)
	if err != nil {
		return domain.TypedVector{}, err
	}
	argType, err := s.space.ArgType(fn.Type)
	if err != nil {
		return domain.TypedVector{}, err
	}
	if arg.Type != argType {
		return domain.TypedVector{}, fmt.Errorf("type mismatch: function type %d expects type %d, got %d",
			fn.Type, argType, arg.Type)
	}
	retType, err := s.space.ReturnType(fn.Type)
	if err != nil {
		return domain.TypedVector{}, err
	}
	if info.OutputDim <= 0 || info.FeatureDim <= 0 || len(fn.Vec) != info.OutputDim*info.FeatureDim {
		return domain.TypedVector{}, fmt.Errorf("sample of type %d has %d elements, want %d x %d",
			fn.Type, len(fn.Vec), info.OutputDim, info.FeatureDim)
	}
	feats, err := s.space.Features(arg.Type, arg.Vec)
	if err != nil {
		return domain.TypedVector{}, err
	}
	if len(feats) != info.FeatureDim {
		return domain.TypedVector{}, fmt.Errorf("argument of type %d has %d features, function %d expects %d",
			arg.Type, len(feats), fn.Type, info.FeatureDim)
	}

	m := mat.NewDense(info.OutputDim, info.FeatureDim, fn.Vec)
	var compressed mat.VecDense
	compressed.MulVec(m, mat.NewVecDense(len(feats), feats))
	return s.expand(retType, &compressed)
}

func (s *Simulator) term(ptr domain.TermPointer) (domain.TypedVector, error) {
	vec, err := s.space.Sample(ptr, s.src)
	if err != nil {
		return domain.TypedVector{}, err
	}
	return domain.TypedVector{Type: ptr.Type, Vec: vec}, nil
}

func (s *Simulator) expand(t domain.TypeID, compressed *mat.VecDense) (domain.TypedVector, error) {
	if s.space.IsVectorType(t) {
		return domain.TypedVector{Type: t, Vec: rawCopy(compressed)}, nil
	}
	elaborator, err := s.space.ElaboratorMean(t)
	if err != nil {
		return domain.TypedVector{}, err
	}
	if _, c := elaborator.Dims(); c != compressed.Len() {
		return domain.TypedVector{}, fmt.Errorf("elaborator for type %d expects %d inputs, got %d", t, c, compressed.Len())
	}
	var full mat.VecDense
	full.MulVec(elaborator, compressed)
	return domain.TypedVector{Type: t, Vec: rawCopy(&full)}, nil
}

func rawCopy(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
