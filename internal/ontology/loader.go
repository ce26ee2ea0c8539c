package ontology

import (
	"fmt"
	"plugin"
)

// Loader generates serialized contexts from parameters and deserializes them.
type Loader interface {
	Generate(params []byte) ([]byte, error)
	Deserialize(data []byte) (*Context, error)
}

// Builtin is the in-process Loader.
type Builtin struct{}

func (Builtin) Generate(params []byte) ([]byte, error)  { return Generate(params) }
func (Builtin) Deserialize(data []byte) (*Context, error) { return Deserialize(data) }

// Symbol names looked up in context-definition plugins.
const (
	GenerateSymbol    = "GenerateSerializedContext"
	DeserializeSymbol = "DeserializeSerializedContext"
)

// PluginLoader delegates to a Go plugin exporting GenerateSerializedContext
// and, optionally, DeserializeSerializedContext.
type PluginLoader struct {
	generate    func([]byte) ([]byte, error)
	deserialize func([]byte) (*Context, error)
}

func OpenPlugin(path string) (*PluginLoader, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load context definition library: %w", err)
	}
	sym, err := p.Lookup(GenerateSymbol)
	if err != nil {
		return nil, fmt.Errorf("locate context definition symbols: %w", err)
	}
	gen, ok := sym.(func([]byte) ([]byte, error))
	if !ok {
		return nil, fmt.Errorf("%s has type %T", GenerateSymbol, sym)
	}
	l := &PluginLoader{generate: gen, deserialize: Deserialize}
	if sym, err := p.Lookup(DeserializeSymbol); err == nil {
		des, ok := sym.(func([]byte) (*Context, error))
		if !ok {
			return nil, fmt.Errorf("%s has type %T", DeserializeSymbol, sym)
		}
		l.deserialize = des
	}
	return l, nil
}

func (l *PluginLoader) Generate(params []byte) ([]byte, error)  { return l.generate(params) }
func (l *PluginLoader) Deserialize(data []byte) (*Context, error) { return l.deserialize(data) }

// NewLoader selects a Loader by configuration type.
func NewLoader(kind, pluginPath string) (Loader, error) {
	switch kind {
	case "builtin", "":
		return Builtin{}, nil
	case "plugin":
		if pluginPath == "" {
			return nil, fmt.Errorf("plugin loader requires a plugin path")
		}
		return OpenPlugin(pluginPath)
	default:
		return nil, fmt.Errorf("unknown loader: %s", kind)
	}
}
