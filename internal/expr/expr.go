package expr

import (
	"fmt"

	"termeval/internal/domain"
)

// Expression is either a *Ref or an *App.
type Expression interface {
	String() string
	isExpression()
}

// FuncExpression is anything that may stand in callee position: a *Func or an *App.
// Vectors cannot be represented here.
type FuncExpression interface {
	String() string
	isFuncExpression()
}

// Ref is a leaf holding a term reference.
type Ref struct {
	Term domain.TermReference
}

func (r *Ref) String() string { return r.Term.String() }
func (*Ref) isExpression()     {}

// Func is a concrete function term in callee position.
type Func struct {
	Ptr domain.TermPointer
}

func (f *Func) String() string   { return f.Ptr.String() }
func (*Func) isFuncExpression() {}

// App applies a callee to a single argument. It owns both children and is
// never modified after construction.
type App struct {
	fn  FuncExpression
	arg Expression
}

func NewApp(fn FuncExpression, arg Expression) *App {
	return &App{fn: fn, arg: arg}
}

func (a *App) Func() FuncExpression { return a.fn }
func (a *App) Arg() Expression      { return a.arg }

func (a *App) String() string {
	return fmt.Sprintf("(%s %s)", a.fn, a.arg)
}

func (*App) isExpression()     {}
func (*App) isFuncExpression() {}

// AsFunc converts e for use in callee position. It fails only for vector references.
func AsFunc(e Expression) (FuncExpression, bool) {
	switch e := e.(type) {
	case *App:
		return e, true
	case *Ref:
		if ref, ok := e.Term.(domain.FunctionRef); ok {
			return &Func{Ptr: ref.Ptr}, true
		}
	}
	return nil, false
}

// BuildApplication curries exprs left-associatively: (f a b c) becomes
// App(App(App(f, a), b), c).
func BuildApplication(exprs []Expression) (*App, error) {
	switch len(exprs) {
	case 0:
		return nil, ErrEmptyExpression
	case 1:
		return nil, ErrSingletonExpression
	}
	fn, ok := AsFunc(exprs[0])
	if !ok {
		return nil, ErrCannotApplyVector
	}
	result := NewApp(fn, exprs[1])
	for _, arg := range exprs[2:] {
		result = NewApp(result, arg)
	}
	return result, nil
}
