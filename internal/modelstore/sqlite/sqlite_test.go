package sqlite

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"termeval/internal/domain"
	"termeval/internal/model"
	"termeval/internal/ontology/ontologytest"
)

func countSnapshots(t *testing.T, path string) int {
	t.Helper()
	db, err := open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestLatestSnapshotWins(t *testing.T) {
	ctx, _ := ontologytest.Context(t)
	m, err := model.New(ctx, model.DefaultHyperparams())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "models.db")
	s := NewStore()

	first := m.Serialize()
	if err := s.Save(path, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	double := domain.TermPointer{Type: 1, Index: domain.Primitive(0)}
	if _, err := m.Apply(double, domain.VectorRef{Type: 0, Vec: []float64{1, 2}}); err != nil {
		t.Fatal(err)
	}
	second := m.Serialize()
	if err := s.Save(path, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("expected the most recent snapshot")
	}
	if n := countSnapshots(t, path); n != 2 {
		t.Fatalf("expected 2 snapshots, got %d", n)
	}
}

func TestLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if _, err := NewStore().Load(path); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}
