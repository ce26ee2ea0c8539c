package domain

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Applier performs memoized application of a function term to an argument.
// Implementations may grow their tables as a side effect.
type Applier interface {
	Apply(callee TermPointer, arg TermReference) (TermReference, error)
}

// VectorSpace is the view of a term model needed to simulate expressions.
type VectorSpace interface {
	// Sample draws one vector from the embedding of a function term.
	Sample(ptr TermPointer, src rand.Source) ([]float64, error)
	FunctionSpaceInfo(t TypeID) (FunctionSpaceInfo, error)
	// Features expands a full vector of type t into its feature space.
	Features(t TypeID, base []float64) ([]float64, error)
	ArgType(t TypeID) (TypeID, error)
	ReturnType(t TypeID) (TypeID, error)
	IsVectorType(t TypeID) bool
	// ElaboratorMean maps the compressed space of a non-vector type to its full space.
	ElaboratorMean(t TypeID) (*mat.Dense, error)
}

// CommandService defines the operations exposed by the application core.
type CommandService interface {
	Execute(line string) (string, error)
}
