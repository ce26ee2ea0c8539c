package session

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/exp/rand"

	"termeval/internal/config"
	"termeval/internal/model"
	"termeval/internal/modelstore"
	"termeval/internal/modelstore/jsonfile"
	"termeval/internal/modelstore/sqlite"
	"termeval/internal/ontology"
	"termeval/internal/termindex"
	"termeval/internal/termindex/memory"
	"termeval/internal/termindex/qdrant"
)

// FromConfig assembles a Session from configuration. Command tracing goes to
// logger when cfg.REPL.Verbose is set.
func FromConfig(cfg *config.AppConfig, logger *log.Logger) (*Session, error) {
	loader, err := ontology.NewLoader(cfg.Loader.Type, cfg.Loader.PluginPath)
	if err != nil {
		return nil, err
	}

	var store modelstore.Store
	switch cfg.Store.Type {
	case "json", "":
		store = jsonfile.NewStore()
	case "sqlite":
		store = sqlite.NewStore()
	default:
		return nil, fmt.Errorf("unknown model store: %s", cfg.Store.Type)
	}

	var index termindex.Index
	switch cfg.Index.Type {
	case "memory", "":
		index = memory.NewIndex()
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		index = qdrant.NewIndex(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Index.Qdrant.APIKeyEnv),
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown term index: %s", cfg.Index.Type)
	}

	seed := cfg.Model.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if !cfg.REPL.Verbose || logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return New(Options{
		Loader: loader,
		Store:  store,
		Index:  index,
		Hyper:  model.Hyperparams{PriorVariance: cfg.Model.PriorVariance, NoiseVariance: cfg.Model.NoiseVariance},
		Source: rand.NewSource(seed),
		TopK:   cfg.Index.TopK,
		Logger: logger,
	}), nil
}
