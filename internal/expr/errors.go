package expr

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyExpression     = errors.New("empty expression")
	ErrSingletonExpression = errors.New("singleton expressions are disallowed")
	ErrCannotApplyVector   = errors.New("cannot apply vector as a function")
	ErrExpectedFunction    = errors.New("expected function, but obtained vector")
)

// EvaluationError reports a sub-expression in callee position that reduced to a vector.
type EvaluationError struct {
	Op   string // "evaluating" or "simulating"
	Expr string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%v from %s %s", ErrExpectedFunction, e.Op, e.Expr)
}

func (e *EvaluationError) Is(target error) bool { return target == ErrExpectedFunction }
