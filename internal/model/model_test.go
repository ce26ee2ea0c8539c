package model

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/exp/rand"

	"termeval/internal/domain"
	"termeval/internal/ontology/ontologytest"
)

var (
	double = domain.TermPointer{Type: 1, Index: domain.Primitive(0)}
	swap   = domain.TermPointer{Type: 1, Index: domain.Primitive(1)}
	blend  = domain.TermPointer{Type: 2, Index: domain.Primitive(0)}
)

func point(xs ...float64) domain.VectorRef { return domain.VectorRef{Type: 0, Vec: xs} }

func newTestModel(t *testing.T) *Model {
	t.Helper()
	ctx, _ := ontologytest.Context(t)
	m, err := New(ctx, DefaultHyperparams())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestApplyVectorResult(t *testing.T) {
	m := newTestModel(t)
	got, err := m.Apply(double, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, point(2, 4)) {
		t.Fatalf("expected #0[2, 4], got %s", got)
	}
	got, err = m.Apply(swap, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "#0[2, 1]" {
		t.Fatalf("expected #0[2, 1], got %s", got)
	}
	if m.Pending() != 2 {
		t.Fatalf("expected two pending observations, got %d", m.Pending())
	}
}

func TestApplyIsMemoized(t *testing.T) {
	m := newTestModel(t)
	first, err := m.Apply(blend, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Apply(blend, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("memoized application should return the same term, got %s and %s", first, second)
	}
	if first.String() != "#1n0" {
		t.Fatalf("expected first synthesized term #1n0, got %s", first)
	}
	if m.Pending() != 1 {
		t.Fatalf("a memo hit should not queue an observation")
	}
	third, err := m.Apply(blend, point(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if third.String() != "#1n1" {
		t.Fatalf("expected #1n1, got %s", third)
	}
}

func TestSynthesizedTermsApply(t *testing.T) {
	m := newTestModel(t)
	partial, err := m.Apply(blend, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	fn := partial.(domain.FunctionRef).Ptr
	v, err := m.Value(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 6 {
		t.Fatalf("expected a full 6-element value, got %d", len(v))
	}
	if v[4] != 0 || v[5] != 0 {
		t.Fatalf("dimensions beyond the compressed 4 should elaborate to zero, got %v", v)
	}
	got, err := m.Apply(fn, point(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(domain.VectorRef); !ok {
		t.Fatalf("expected vector result, got %s", got)
	}
	if _, err := m.Embedding(fn); err != nil {
		t.Fatalf("synthesized term should have an embedding: %v", err)
	}
}

func TestApplyErrors(t *testing.T) {
	m := newTestModel(t)
	for _, tc := range []struct {
		name   string
		callee domain.TermPointer
		arg    domain.TermReference
		want   string
	}{
		{"not a function", domain.TermPointer{Type: 0, Index: domain.Primitive(0)}, point(1, 1), "not a function type"},
		{"type mismatch", double, domain.FunctionRef{Ptr: swap}, "type mismatch"},
		{"wrong length", double, point(1, 2, 3), "has 3 elements"},
		{"missing term", domain.TermPointer{Type: 1, Index: domain.NonPrimitive(4)}, point(1, 1), "no term #1n4"},
		{"nan element", double, point(math.NaN(), 1), "must be finite"},
		{"infinite element", double, point(1, math.Inf(-1)), "must be finite"},
	} {
		_, err := m.Apply(tc.callee, tc.arg)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.want, err)
		}
	}
	if m.Pending() != 0 {
		t.Fatalf("rejected applications must not record observations, got %d", m.Pending())
	}
}

func TestSampleIsSeeded(t *testing.T) {
	m := newTestModel(t)
	a, err := m.Sample(double, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Sample(double, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 6 || !reflect.DeepEqual(a, b) {
		t.Fatalf("samples with the same seed should match: %v %v", a, b)
	}
	if _, err := m.Sample(domain.TermPointer{Type: 1, Index: domain.NonPrimitive(0)}, rand.NewSource(1)); err == nil {
		t.Fatalf("sampling an unknown term should fail")
	}
}

func sqErr(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func TestBayesianUpdateLearnsPrimitive(t *testing.T) {
	m := newTestModel(t)
	truth, _ := m.Value(double)
	before := sqErr(m.embeddings[double].Mean, truth)
	for _, p := range [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, -1}, {-1, 3}} {
		if _, err := m.Apply(double, point(p...)); err != nil {
			t.Fatal(err)
		}
	}
	sum := m.BayesianUpdateStep()
	if sum.Observations != 5 || sum.Terms != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	after := sqErr(m.embeddings[double].Mean, truth)
	if !(after < before) {
		t.Fatalf("update should move the mean toward the observed map: before %g after %g", before, after)
	}
	for i, v := range m.embeddings[double].Variance {
		if !(v < DefaultHyperparams().PriorVariance) {
			t.Fatalf("variance %d should shrink, got %g", i, v)
		}
	}
	untouched := m.embeddings[swap]
	if untouched.Variance[0] != DefaultHyperparams().PriorVariance {
		t.Fatalf("terms without observations should keep the prior")
	}
	m.ClearNewlyReceived()
	if m.Pending() != 0 {
		t.Fatalf("pending queue should be empty")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := newTestModel(t)
	ctx := m.Context()
	for _, p := range [][]float64{{1, 2}, {3, 4}} {
		partial, err := m.Apply(blend, point(p...))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.Apply(partial.(domain.FunctionRef).Ptr, point(p...)); err != nil {
			t.Fatal(err)
		}
	}
	s := m.Serialize()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Serialized
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	back, err := Deserialize(&decoded, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Serialize(), s) {
		t.Fatalf("serialized model changed across a round trip")
	}
	hit, err := back.Apply(blend, point(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if hit.String() != "#1n0" || back.Pending() != 4 {
		t.Fatalf("memo table and pending queue should survive a round trip, got %s and %d", hit, back.Pending())
	}
}

func TestSerializedIsIndependent(t *testing.T) {
	m := newTestModel(t)
	s := m.Serialize()
	m.embeddings[double].Mean[0] = 42
	if s.Embeddings[0].Mean[0] == 42 {
		t.Fatalf("serialized form must not alias the live model")
	}
}

func TestDeserializeRejects(t *testing.T) {
	ctx, _ := ontologytest.Context(t)
	if _, err := Deserialize(Empty(), ctx); err == nil {
		t.Fatalf("the placeholder is not a deserializable model")
	}
	bad := &Serialized{Hyper: DefaultHyperparams(), Terms: []TermRecord{{Type: 0, Values: [][]float64{{1, 2}}}}}
	if _, err := Deserialize(bad, ctx); err == nil {
		t.Fatalf("terms of a vector type should be rejected")
	}
	bad = &Serialized{Hyper: DefaultHyperparams(), Embeddings: []EmbeddingRecord{{Term: double, Mean: []float64{1}, Variance: []float64{1}}}}
	if _, err := Deserialize(bad, ctx); err == nil {
		t.Fatalf("embedding of the wrong size should be rejected")
	}
}

func TestElaboratorAndFeatures(t *testing.T) {
	m := newTestModel(t)
	e, err := m.ElaboratorMean(1)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := e.Dims(); r != 6 || c != 4 {
		t.Fatalf("elaborator should be 6x4, got %dx%d", r, c)
	}
	if _, err := m.ElaboratorMean(0); err == nil {
		t.Fatalf("vector types have no elaborator")
	}
	f, err := m.Features(0, []float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f, []float64{3, 4, 1}) {
		t.Fatalf("unexpected features %v", f)
	}
}
