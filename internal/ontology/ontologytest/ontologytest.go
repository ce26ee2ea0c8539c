// Package ontologytest provides a small fixed ontology for tests.
package ontologytest

import (
	"testing"

	"termeval/internal/ontology"
)

// Params declares:
//
//	#0 point      vector, dim 2
//	#1 transform  (point -> point), 2 x 3, compressed to 4, primitives double (p0) and swap (p1)
//	#2 curried    (point -> transform), 4 x 3, primitive blend (p0)
const Params = `
seed: 7
types:
  - name: point
    dim: 2
  - name: transform
    arg: point
    ret: point
    compressed_dim: 4
  - name: curried
    arg: point
    ret: transform
primitives:
  transform:
    - name: double
      value: [2, 0, 0, 0, 2, 0]
    - name: swap
      value: [0, 1, 0, 1, 0, 0]
  curried:
    - name: blend
`

// Context returns the parsed fixture ontology and its serialized bytes.
func Context(t testing.TB) (*ontology.Context, []byte) {
	t.Helper()
	data, err := ontology.Generate([]byte(Params))
	if err != nil {
		t.Fatalf("generate fixture ontology: %v", err)
	}
	ctx, err := ontology.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize fixture ontology: %v", err)
	}
	return ctx, data
}
