package modelstore

import "termeval/internal/model"

// Store persists model snapshots at a user-supplied path.
type Store interface {
	Save(path string, s *model.Serialized) error
	Load(path string) (*model.Serialized, error)
}
