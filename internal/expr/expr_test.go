package expr

import (
	"errors"
	"testing"

	"termeval/internal/domain"
)

func fn(typ, n int) Expression {
	return &Ref{Term: domain.FunctionRef{Ptr: domain.TermPointer{Type: domain.TypeID(typ), Index: domain.Primitive(n)}}}
}

func vec(typ int, xs ...float64) Expression {
	return &Ref{Term: domain.VectorRef{Type: domain.TypeID(typ), Vec: xs}}
}

func TestBuildApplicationCurriesLeft(t *testing.T) {
	f, a, b, c := fn(3, 0), vec(0, 1), vec(0, 2), vec(0, 3)
	app, err := BuildApplication([]Expression{f, a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	if app.Arg() != c {
		t.Fatalf("outermost argument should be c, got %s", app.Arg())
	}
	inner, ok := app.Func().(*App)
	if !ok || inner.Arg() != b {
		t.Fatalf("expected App(App(f,a),b) in callee position, got %s", app.Func())
	}
	innermost, ok := inner.Func().(*App)
	if !ok || innermost.Arg() != a {
		t.Fatalf("expected App(f,a) innermost, got %s", inner.Func())
	}
	if _, ok := innermost.Func().(*Func); !ok {
		t.Fatalf("expected bare function at the head, got %T", innermost.Func())
	}
	want := "(((#3p0 #0[1]) #0[2]) #0[3])"
	if app.String() != want {
		t.Fatalf("expected %s, got %s", want, app.String())
	}
}

func TestBuildApplicationErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		exprs []Expression
		want  error
	}{
		{"empty", nil, ErrEmptyExpression},
		{"singleton", []Expression{fn(1, 0)}, ErrSingletonExpression},
		{"vector head", []Expression{vec(0, 1, 2), fn(1, 0)}, ErrCannotApplyVector},
	} {
		_, err := BuildApplication(tc.exprs)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestApplicationInHeadPosition(t *testing.T) {
	inner, err := BuildApplication([]Expression{fn(2, 1), vec(0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	outer, err := BuildApplication([]Expression{inner, vec(0, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if outer.Func() != FuncExpression(inner) {
		t.Fatalf("nested application should be reused as callee")
	}
}

func TestEvaluationErrorMatchesSentinel(t *testing.T) {
	err := error(&EvaluationError{Op: "simulating", Expr: "(#1p0 #0[1])"})
	if !errors.Is(err, ErrExpectedFunction) {
		t.Fatalf("EvaluationError should match ErrExpectedFunction")
	}
	want := "expected function, but obtained vector from simulating (#1p0 #0[1])"
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}
