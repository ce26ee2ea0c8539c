// Package ontology holds the type system and primitive-term directory that
// expressions are evaluated over.
package ontology

import (
	"errors"
	"fmt"

	"termeval/internal/domain"
)

// Kind distinguishes vector types from function types.
type Kind string

const (
	VectorKind   Kind = "vector"
	FunctionKind Kind = "function"
)

// maxDim bounds the full dimension of any type.
const maxDim = 1 << 20

// Type is one entry of the type table. Function types may only refer to
// types with smaller ids.
type Type struct {
	Name          string        `json:"name,omitempty"`
	Kind          Kind          `json:"kind"`
	Dim           int           `json:"dim,omitempty"`
	Arg           domain.TypeID `json:"arg,omitempty"`
	Ret           domain.TypeID `json:"ret,omitempty"`
	CompressedDim int           `json:"compressed_dim,omitempty"`
}

// PrimitiveTerm is a built-in function term. Value is its row-major
// OutputDim x FeatureDim matrix.
type PrimitiveTerm struct {
	Name  string    `json:"name"`
	Value []float64 `json:"value"`
}

// Context is an immutable, validated ontology.
type Context struct {
	types      []Type
	primitives map[domain.TypeID][]PrimitiveTerm
	full       []int
	compressed []int
}

var ErrUnknownType = errors.New("unknown type")

// New validates the type table and primitive directory and derives all dimensions.
func New(types []Type, primitives map[domain.TypeID][]PrimitiveTerm) (*Context, error) {
	c := &Context{
		types:      append([]Type(nil), types...),
		primitives: make(map[domain.TypeID][]PrimitiveTerm, len(primitives)),
		full:       make([]int, len(types)),
		compressed: make([]int, len(types)),
	}
	for i, t := range c.types {
		id := domain.TypeID(i)
		switch t.Kind {
		case VectorKind:
			if t.Dim <= 0 || t.Dim > maxDim {
				return nil, fmt.Errorf("type %d: vector dimension %d out of range", id, t.Dim)
			}
			c.full[i], c.compressed[i] = t.Dim, t.Dim
		case FunctionKind:
			if t.Arg < 0 || t.Arg >= id || t.Ret < 0 || t.Ret >= id {
				return nil, fmt.Errorf("type %d: function types may only refer to earlier types", id)
			}
			out, feat := c.compressed[t.Ret], c.full[t.Arg]+1
			if out*feat > maxDim {
				return nil, fmt.Errorf("type %d: dimension %d x %d too large", id, out, feat)
			}
			c.full[i] = out * feat
			c.compressed[i] = c.full[i]
			if t.CompressedDim < 0 {
				return nil, fmt.Errorf("type %d: negative compressed dimension", id)
			}
			if t.CompressedDim > 0 && t.CompressedDim < c.full[i] {
				c.compressed[i] = t.CompressedDim
			}
		default:
			return nil, fmt.Errorf("type %d: unknown kind %q", id, t.Kind)
		}
	}
	for id, terms := range primitives {
		if !c.valid(id) {
			return nil, fmt.Errorf("primitives for type %d: %w", id, ErrUnknownType)
		}
		if c.IsVectorType(id) {
			return nil, fmt.Errorf("primitives for type %d: vector types have no primitive terms", id)
		}
		for j, term := range terms {
			if len(term.Value) != c.full[id] {
				return nil, fmt.Errorf("primitive %s (#%dp%d): value has %d elements, want %d",
					term.Name, id, j, len(term.Value), c.full[id])
			}
		}
		c.primitives[id] = append([]PrimitiveTerm(nil), terms...)
	}
	return c, nil
}

func (c *Context) valid(id domain.TypeID) bool { return id >= 0 && int(id) < len(c.types) }

func (c *Context) NumTypes() int { return len(c.types) }

func (c *Context) Type(id domain.TypeID) (Type, error) {
	if !c.valid(id) {
		return Type{}, fmt.Errorf("type %d: %w", id, ErrUnknownType)
	}
	return c.types[id], nil
}

func (c *Context) IsVectorType(id domain.TypeID) bool {
	return c.valid(id) && c.types[id].Kind == VectorKind
}

func (c *Context) IsFunctionType(id domain.TypeID) bool {
	return c.valid(id) && c.types[id].Kind == FunctionKind
}

// FullDim is the length of a fully expanded vector of the type.
func (c *Context) FullDim(id domain.TypeID) int {
	if !c.valid(id) {
		return 0
	}
	return c.full[id]
}

// CompressedDim is the length of the type's compressed representation.
func (c *Context) CompressedDim(id domain.TypeID) int {
	if !c.valid(id) {
		return 0
	}
	return c.compressed[id]
}

// FeatureDim is the length of the affine feature expansion of the type.
func (c *Context) FeatureDim(id domain.TypeID) int {
	if !c.valid(id) {
		return 0
	}
	return c.full[id] + 1
}

func (c *Context) FunctionSpaceInfo(id domain.TypeID) (domain.FunctionSpaceInfo, error) {
	t, err := c.function(id)
	if err != nil {
		return domain.FunctionSpaceInfo{}, err
	}
	return domain.FunctionSpaceInfo{OutputDim: c.compressed[t.Ret], FeatureDim: c.full[t.Arg] + 1}, nil
}

func (c *Context) ArgType(id domain.TypeID) (domain.TypeID, error) {
	t, err := c.function(id)
	if err != nil {
		return 0, err
	}
	return t.Arg, nil
}

func (c *Context) ReturnType(id domain.TypeID) (domain.TypeID, error) {
	t, err := c.function(id)
	if err != nil {
		return 0, err
	}
	return t.Ret, nil
}

func (c *Context) function(id domain.TypeID) (Type, error) {
	t, err := c.Type(id)
	if err != nil {
		return Type{}, err
	}
	if t.Kind != FunctionKind {
		return Type{}, fmt.Errorf("type %d is not a function type", id)
	}
	return t, nil
}

// Primitives lists the built-in terms of a type, in index order.
func (c *Context) Primitives(id domain.TypeID) []PrimitiveTerm {
	return c.primitives[id]
}

func (c *Context) Primitive(ptr domain.TermPointer) (PrimitiveTerm, error) {
	terms := c.primitives[ptr.Type]
	if !ptr.Index.IsPrimitive() || ptr.Index.N < 0 || ptr.Index.N >= len(terms) {
		return PrimitiveTerm{}, fmt.Errorf("no primitive term %s", ptr)
	}
	return terms[ptr.Index.N], nil
}

// Display renders a type for listings: vector types by name, function types
// as (arg -> ret).
func (c *Context) Display(id domain.TypeID) string {
	if !c.valid(id) {
		return fmt.Sprintf("<unknown type %d>", id)
	}
	t := c.types[id]
	if t.Kind == FunctionKind {
		return fmt.Sprintf("(%s -> %s)", c.Display(t.Arg), c.Display(t.Ret))
	}
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("vec%d", t.Dim)
}
