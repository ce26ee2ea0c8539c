package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeID identifies a type in the loaded ontology.
type TypeID int

// IndexKind tells built-in terms apart from terms synthesized during evaluation.
type IndexKind uint8

const (
	PrimitiveIndex IndexKind = iota
	NonPrimitiveIndex
)

// TermIndex locates a term inside the term space of its type.
type TermIndex struct {
	Kind IndexKind `json:"kind"`
	N    int       `json:"n"`
}

// Primitive returns the index of the n-th built-in term of a type.
func Primitive(n int) TermIndex { return TermIndex{Kind: PrimitiveIndex, N: n} }

// NonPrimitive returns the index of the n-th synthesized term of a type.
func NonPrimitive(n int) TermIndex { return TermIndex{Kind: NonPrimitiveIndex, N: n} }

func (i TermIndex) IsPrimitive() bool { return i.Kind == PrimitiveIndex }

func (i TermIndex) String() string {
	if i.IsPrimitive() {
		return "p" + strconv.Itoa(i.N)
	}
	return "n" + strconv.Itoa(i.N)
}

// TermPointer is a stable identifier for one function-typed term.
type TermPointer struct {
	Type  TypeID    `json:"type"`
	Index TermIndex `json:"index"`
}

func (p TermPointer) String() string { return fmt.Sprintf("#%d%s", p.Type, p.Index) }

// TermReference is either a FunctionRef or a VectorRef.
type TermReference interface {
	TypeID() TypeID
	String() string
	isTermReference()
}

// FunctionRef references a function-typed term.
type FunctionRef struct {
	Ptr TermPointer
}

func (r FunctionRef) TypeID() TypeID { return r.Ptr.Type }
func (r FunctionRef) String() string { return r.Ptr.String() }
func (FunctionRef) isTermReference() {}

// VectorRef is a literal or computed value of a vector-typed space.
type VectorRef struct {
	Type TypeID
	Vec  []float64
}

func (r VectorRef) TypeID() TypeID { return r.Type }
func (r VectorRef) String() string { return FormatVector(r.Type, r.Vec) }
func (VectorRef) isTermReference() {}

// TypedVector is the result of simulation. Vec is always fully expanded.
type TypedVector struct {
	Type TypeID
	Vec  []float64
}

func (v TypedVector) String() string { return FormatVector(v.Type, v.Vec) }

// FunctionSpaceInfo describes the matrix shape of a function type's terms.
type FunctionSpaceInfo struct {
	OutputDim  int
	FeatureDim int
}

// FormatVector renders a vector in the literal syntax accepted by the parser.
func FormatVector(t TypeID, vec []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d[", t)
	for i, f := range vec {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
