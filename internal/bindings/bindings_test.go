package bindings

import (
	"errors"
	"testing"

	"termeval/internal/domain"
)

func TestWriteOverwrites(t *testing.T) {
	b := New()
	b.Write("x", domain.FunctionRef{Ptr: domain.TermPointer{Type: 1, Index: domain.Primitive(0)}})
	b.Write("x", domain.VectorRef{Type: 0, Vec: []float64{1, 2}})
	ref, err := b.Lookup("x")
	if err != nil {
		t.Fatal(err)
	}
	if ref.String() != "#0[1, 2]" {
		t.Fatalf("expected overwritten binding, got %s", ref)
	}
}

func TestLookupMissing(t *testing.T) {
	b := New()
	b.Write("foo", domain.VectorRef{Type: 0, Vec: []float64{1}})
	_, err := b.Lookup("fo")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected LookupError, got %v", err)
	}
	if le.Name != "fo" {
		t.Fatalf("expected name fo, got %q", le.Name)
	}
}

func TestNamesSorted(t *testing.T) {
	b := New()
	for _, n := range []string{"c", "a", "b"} {
		b.Write(n, domain.VectorRef{Type: 0, Vec: []float64{0}})
	}
	got := b.Names()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected names %v", got)
	}
}
