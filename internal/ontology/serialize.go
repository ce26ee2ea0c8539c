package ontology

import (
	"encoding/json"
	"fmt"
	"slices"

	"termeval/internal/domain"
)

type primitiveSpace struct {
	Type  domain.TypeID   `json:"type"`
	Terms []PrimitiveTerm `json:"terms"`
}

type serialized struct {
	Types      []Type           `json:"types"`
	Primitives []primitiveSpace `json:"primitives"`
}

// Marshal renders the context as JSON, primitive spaces ordered by type id.
func (c *Context) Marshal() ([]byte, error) {
	s := serialized{Types: c.types}
	ids := make([]domain.TypeID, 0, len(c.primitives))
	for id := range c.primitives {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.Primitives = append(s.Primitives, primitiveSpace{Type: id, Terms: c.primitives[id]})
	}
	return json.MarshalIndent(s, "", "  ")
}

// Deserialize parses and validates a JSON context.
func Deserialize(data []byte) (*Context, error) {
	var s serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	prims := make(map[domain.TypeID][]PrimitiveTerm, len(s.Primitives))
	for _, space := range s.Primitives {
		if _, dup := prims[space.Type]; dup {
			return nil, fmt.Errorf("duplicate primitive space for type %d", space.Type)
		}
		prims[space.Type] = space.Terms
	}
	return New(s.Types, prims)
}
