// Package eval reduces expression trees to term references against a term model.
package eval

import (
	"termeval/internal/domain"
	"termeval/internal/expr"
)

// Expression evaluates e. References evaluate to themselves.
func Expression(m domain.Applier, e expr.Expression) (domain.TermReference, error) {
	switch e := e.(type) {
	case *expr.Ref:
		return e.Term, nil
	case *expr.App:
		return App(m, e)
	}
	panic("eval: unknown expression type")
}

// App evaluates the callee, then the argument, then applies one to the other.
func App(m domain.Applier, a *expr.App) (domain.TermReference, error) {
	callee, err := Func(m, a.Func())
	if err != nil {
		return nil, err
	}
	arg, err := Expression(m, a.Arg())
	if err != nil {
		return nil, err
	}
	return m.Apply(callee, arg)
}

// Func reduces a callee expression to the function term it denotes.
func Func(m domain.Applier, f expr.FuncExpression) (domain.TermPointer, error) {
	switch f := f.(type) {
	case *expr.Func:
		return f.Ptr, nil
	case *expr.App:
		ref, err := App(m, f)
		if err != nil {
			return domain.TermPointer{}, err
		}
		fn, ok := ref.(domain.FunctionRef)
		if !ok {
			return domain.TermPointer{}, &expr.EvaluationError{Op: "evaluating", Expr: f.String()}
		}
		return fn.Ptr, nil
	}
	panic("eval: unknown callee type")
}
