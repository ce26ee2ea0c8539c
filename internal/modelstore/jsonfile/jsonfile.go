package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"termeval/internal/model"
)

// Store writes each snapshot as an indented JSON document, replacing the file.
type Store struct{}

func NewStore() *Store { return &Store{} }

func (s *Store) Save(path string, snap *model.Serialized) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) Load(path string) (*model.Serialized, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap model.Serialized
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &snap, nil
}
