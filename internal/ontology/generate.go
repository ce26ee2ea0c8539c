package ontology

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"termeval/internal/domain"
)

// TypeParams declares one type. A type with neither Arg nor Ret is a vector type.
type TypeParams struct {
	Name          string `yaml:"name"`
	Dim           int    `yaml:"dim,omitempty"`
	Arg           string `yaml:"arg,omitempty"`
	Ret           string `yaml:"ret,omitempty"`
	CompressedDim int    `yaml:"compressed_dim,omitempty"`
}

// PrimitiveParams declares a primitive term. An empty Value is drawn at random.
type PrimitiveParams struct {
	Name  string    `yaml:"name"`
	Value []float64 `yaml:"value,omitempty"`
}

// Params is the input to Generate. Both YAML and JSON encodings are accepted.
type Params struct {
	Seed       uint64                       `yaml:"seed"`
	Types      []TypeParams                 `yaml:"types"`
	Primitives map[string][]PrimitiveParams `yaml:"primitives"`
}

// Generate builds a serialized context from generation parameters.
func Generate(params []byte) ([]byte, error) {
	var p Params
	if err := yaml.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	ctx, err := Build(p)
	if err != nil {
		return nil, err
	}
	return ctx.Marshal()
}

// Build resolves type names and fills in missing primitive values with draws
// from N(0, 1/FeatureDim), seeded by p.Seed.
func Build(p Params) (*Context, error) {
	if len(p.Types) == 0 {
		return nil, errors.New("params declare no types")
	}
	ids := make(map[string]domain.TypeID, len(p.Types))
	types := make([]Type, 0, len(p.Types))
	for i, tp := range p.Types {
		if tp.Name == "" {
			return nil, fmt.Errorf("type %d has no name", i)
		}
		if _, dup := ids[tp.Name]; dup {
			return nil, fmt.Errorf("type %s declared twice", tp.Name)
		}
		t := Type{Name: tp.Name, Kind: VectorKind, Dim: tp.Dim}
		if tp.Arg != "" || tp.Ret != "" {
			arg, ok := ids[tp.Arg]
			if !ok {
				return nil, fmt.Errorf("type %s: argument type %q not declared before it", tp.Name, tp.Arg)
			}
			ret, ok := ids[tp.Ret]
			if !ok {
				return nil, fmt.Errorf("type %s: return type %q not declared before it", tp.Name, tp.Ret)
			}
			t = Type{Name: tp.Name, Kind: FunctionKind, Arg: arg, Ret: ret, CompressedDim: tp.CompressedDim}
		}
		ids[tp.Name] = domain.TypeID(i)
		types = append(types, t)
	}
	for name := range p.Primitives {
		if _, ok := ids[name]; !ok {
			return nil, fmt.Errorf("primitives declared for unknown type %s", name)
		}
	}

	// Dimensions come from the validated type table.
	shape, err := New(types, nil)
	if err != nil {
		return nil, err
	}
	src := rand.NewSource(p.Seed)
	prims := make(map[domain.TypeID][]PrimitiveTerm)
	for _, tp := range p.Types {
		id := ids[tp.Name]
		for _, pp := range p.Primitives[tp.Name] {
			value := pp.Value
			if len(value) == 0 && shape.IsFunctionType(id) {
				value = randomValue(shape, id, src)
			}
			prims[id] = append(prims[id], PrimitiveTerm{Name: pp.Name, Value: value})
		}
	}
	return New(types, prims)
}

func randomValue(c *Context, id domain.TypeID, src rand.Source) []float64 {
	info, _ := c.FunctionSpaceInfo(id)
	dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(info.FeatureDim)), Src: src}
	value := make([]float64, c.FullDim(id))
	for i := range value {
		value[i] = dist.Rand()
	}
	return value
}
