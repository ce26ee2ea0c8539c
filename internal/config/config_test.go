package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, defaultConfig()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termeval.yaml")
	data := `
repl:
  mode: line
model:
  seed: 42
index:
  type: qdrant
  qdrant:
    url: http://qdrant:6333
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.REPL.Mode != "line" || cfg.REPL.Prompt != ">> " {
		t.Fatalf("unexpected repl config %+v", cfg.REPL)
	}
	if cfg.Model.Seed != 42 || cfg.Model.PriorVariance != 1 || cfg.Model.NoiseVariance != 0.01 {
		t.Fatalf("unexpected model config %+v", cfg.Model)
	}
	q := cfg.Index.Qdrant
	if q.URL != "http://qdrant:6333" || q.APIKeyEnv != "QDRANT_API_KEY" || q.Collection != "termeval_terms" || q.TimeoutSecs != 15 {
		t.Fatalf("unexpected qdrant config %+v", q)
	}
	if cfg.Store.Type != "json" || cfg.Index.TopK != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Store.Type = "sqlite"
	want.Loader = LoaderConfig{Type: "plugin", PluginPath: "/opt/ontology.so"}
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("repl: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a YAML error")
	}
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(home, ".config", "termeval", "config.yaml") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults should be written: %v", err)
	}
	if !reflect.DeepEqual(cfg, defaultConfig()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
