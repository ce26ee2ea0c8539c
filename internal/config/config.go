package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// REPLConfig configures the interactive front end.
type REPLConfig struct {
	Mode        string `yaml:"mode"`
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`
	Verbose     bool   `yaml:"verbose"`
}

// LoaderConfig selects where ontologies are generated and deserialized.
type LoaderConfig struct {
	Type       string `yaml:"type"`
	PluginPath string `yaml:"plugin_path,omitempty"`
}

// ModelConfig holds the model hyperparameters and the sampling seed.
// A zero seed draws one from the clock at startup.
type ModelConfig struct {
	Seed          uint64  `yaml:"seed"`
	PriorVariance float64 `yaml:"prior_variance"`
	NoiseVariance float64 `yaml:"noise_variance"`
}

// StoreConfig selects the model snapshot store.
type StoreConfig struct {
	Type string `yaml:"type"`
}

// IndexConfig selects and configures the nearest-term index.
type IndexConfig struct {
	Type   string        `yaml:"type"`
	TopK   int           `yaml:"top_k"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant term index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	REPL   REPLConfig   `yaml:"repl"`
	Loader LoaderConfig `yaml:"loader"`
	Model  ModelConfig  `yaml:"model"`
	Store  StoreConfig  `yaml:"store"`
	Index  IndexConfig  `yaml:"index"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./termeval.yaml first, then ~/.config/termeval/config.yaml.
// If neither exists, it writes defaults to ~/.config/termeval/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "termeval.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "termeval", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		REPL:   REPLConfig{Mode: "tui", Prompt: ">> ", HistoryFile: "~/.termeval_history"},
		Loader: LoaderConfig{Type: "builtin"},
		Model:  ModelConfig{PriorVariance: 1, NoiseVariance: 0.01},
		Store:  StoreConfig{Type: "json"},
		Index:  IndexConfig{Type: "memory", TopK: 5},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	d := defaultConfig()
	if cfg.REPL.Mode == "" {
		cfg.REPL.Mode = d.REPL.Mode
	}
	if cfg.REPL.Prompt == "" {
		cfg.REPL.Prompt = d.REPL.Prompt
	}
	if cfg.Loader.Type == "" {
		cfg.Loader.Type = d.Loader.Type
	}
	if cfg.Model.PriorVariance == 0 {
		cfg.Model.PriorVariance = d.Model.PriorVariance
	}
	if cfg.Model.NoiseVariance == 0 {
		cfg.Model.NoiseVariance = d.Model.NoiseVariance
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = d.Store.Type
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = d.Index.Type
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = d.Index.TopK
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.URL == "" {
			cfg.Index.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Index.Qdrant.APIKeyEnv == "" {
			cfg.Index.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "termeval_terms"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}
}
