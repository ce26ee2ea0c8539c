package ontology_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"termeval/internal/domain"
	"termeval/internal/ontology"
	"termeval/internal/ontology/ontologytest"
)

func TestFixtureDimensions(t *testing.T) {
	ctx, _ := ontologytest.Context(t)
	for _, tc := range []struct {
		id         domain.TypeID
		full, comp int
		vector     bool
	}{
		{0, 2, 2, true},
		{1, 6, 4, false},
		{2, 12, 12, false},
	} {
		if got := ctx.FullDim(tc.id); got != tc.full {
			t.Fatalf("type %d: full dim %d, want %d", tc.id, got, tc.full)
		}
		if got := ctx.CompressedDim(tc.id); got != tc.comp {
			t.Fatalf("type %d: compressed dim %d, want %d", tc.id, got, tc.comp)
		}
		if got := ctx.IsVectorType(tc.id); got != tc.vector {
			t.Fatalf("type %d: IsVectorType %v", tc.id, got)
		}
	}
	info, err := ctx.FunctionSpaceInfo(2)
	if err != nil {
		t.Fatal(err)
	}
	if info != (domain.FunctionSpaceInfo{OutputDim: 4, FeatureDim: 3}) {
		t.Fatalf("unexpected function space info %+v", info)
	}
	if _, err := ctx.FunctionSpaceInfo(0); err == nil {
		t.Fatalf("vector type should have no function space info")
	}
}

func TestDisplay(t *testing.T) {
	ctx, _ := ontologytest.Context(t)
	if got := ctx.Display(2); got != "(point -> (point -> point))" {
		t.Fatalf("unexpected display %q", got)
	}
}

func TestGeneratedValuesAreDeterministic(t *testing.T) {
	a, err := ontology.Generate([]byte(ontologytest.Params))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ontology.Generate([]byte(ontologytest.Params))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("generation with a fixed seed should be deterministic")
	}
	ctx, err := ontology.Deserialize(a)
	if err != nil {
		t.Fatal(err)
	}
	blend, err := ctx.Primitive(domain.TermPointer{Type: 2, Index: domain.Primitive(0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(blend.Value) != 12 {
		t.Fatalf("blend should have a drawn 12-element value, got %d", len(blend.Value))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	ctx, data := ontologytest.Context(t)
	again, err := ctx.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(data) {
		t.Fatalf("marshal is not stable")
	}
	back, err := ontology.Deserialize(again)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Primitives(1), ctx.Primitives(1)) {
		t.Fatalf("primitives changed in round trip")
	}
}

func TestJSONParamsAccepted(t *testing.T) {
	params := `{"types": [{"name": "x", "dim": 1}, {"name": "f", "arg": "x", "ret": "x"}],
	            "primitives": {"f": [{"name": "id", "value": [1, 0]}]}}`
	data, err := ontology.Generate([]byte(params))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := ontology.Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.NumTypes() != 2 || len(ctx.Primitives(1)) != 1 {
		t.Fatalf("unexpected context from JSON params")
	}
}

func TestValidation(t *testing.T) {
	for _, tc := range []struct {
		name, params, want string
	}{
		{"forward reference", "types: [{name: f, arg: x, ret: x}, {name: x, dim: 1}]", "not declared before"},
		{"zero dim", "types: [{name: x, dim: 0}]", "out of range"},
		{"duplicate", "types: [{name: x, dim: 1}, {name: x, dim: 2}]", "declared twice"},
		{"vector primitive", "types: [{name: x, dim: 1}]\nprimitives: {x: [{name: a}]}", "no primitive terms"},
		{"bad value", "types: [{name: x, dim: 1}, {name: f, arg: x, ret: x}]\nprimitives: {f: [{name: a, value: [1]}]}", "want 2"},
		{"unknown type", "types: [{name: x, dim: 1}]\nprimitives: {y: [{name: a}]}", "unknown type y"},
		{"empty", "seed: 1", "no types"},
	} {
		_, err := ontology.Generate([]byte(tc.params))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestUnknownType(t *testing.T) {
	ctx, _ := ontologytest.Context(t)
	if _, err := ctx.Type(9); !errors.Is(err, ontology.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := ctx.Primitive(domain.TermPointer{Type: 1, Index: domain.Primitive(5)}); err == nil {
		t.Fatalf("expected missing primitive error")
	}
}

func TestNewLoader(t *testing.T) {
	l, err := ontology.NewLoader("builtin", "")
	if err != nil {
		t.Fatal(err)
	}
	data, err := l.Generate([]byte(ontologytest.Params))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Deserialize(data); err != nil {
		t.Fatal(err)
	}
	if _, err := ontology.NewLoader("plugin", ""); err == nil {
		t.Fatalf("plugin loader without path should fail")
	}
	if _, err := ontology.NewLoader("dylib", ""); err == nil {
		t.Fatalf("unknown loader should fail")
	}
}
