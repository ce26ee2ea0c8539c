package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for input that names no command.
var ErrUnknownCommand = errors.New("not a recognized command")

// Kind identifies a REPL command.
type Kind int

const (
	Help Kind = iota
	Parse
	Let
	Evaluate
	Simulate
	GenerateContext
	LoadContext
	UnloadContext
	SaveContext
	ListTypes
	ListPrimitiveTerms
	SaveModels
	LoadModels
	UpdateModels
	Nearest
	ListBindings
)

// Command is one parsed input line. Name is set only for Let.
type Command struct {
	Kind Kind
	Name string
	Arg  string
}

// needsContext reports whether the command operates on a loaded context.
func (c Command) needsContext() bool {
	switch c.Kind {
	case Help, Parse, GenerateContext, LoadContext, UnloadContext, ListBindings:
		return false
	}
	return true
}

var bareCommands = map[string]Kind{
	"help":           Help,
	"unload_context": UnloadContext,
	"list_types":     ListTypes,
	"update_models":  UpdateModels,
	"update":         UpdateModels,
	"bindings":       ListBindings,
}

var argumentCommands = map[string]Kind{
	"parse":                Parse,
	"let":                  Let,
	"evaluate":             Evaluate,
	"eval":                 Evaluate,
	"simulate":             Simulate,
	"sim":                  Simulate,
	"generate_context":     GenerateContext,
	"load_context":         LoadContext,
	"save_context":         SaveContext,
	"list_primitive_terms": ListPrimitiveTerms,
	"list_prim_terms":      ListPrimitiveTerms,
	"save_models":          SaveModels,
	"load_models":          LoadModels,
	"nearest":              Nearest,
}

// ParseCommandLine splits a line into a command word and its trimmed argument.
func ParseCommandLine(line string) (Command, error) {
	word, rest, hasArg := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if !hasArg || rest == "" {
		kind, ok := bareCommands[word]
		if !ok {
			if _, needsArg := argumentCommands[word]; needsArg {
				return Command{}, fmt.Errorf("%s requires an argument", word)
			}
			return Command{}, fmt.Errorf("%q: %w (without arguments)", word, ErrUnknownCommand)
		}
		return Command{Kind: kind}, nil
	}
	kind, ok := argumentCommands[word]
	if !ok {
		return Command{}, fmt.Errorf("%q: %w (with arguments)", word, ErrUnknownCommand)
	}
	if kind != Let {
		return Command{Kind: kind, Arg: rest}, nil
	}
	name, body, ok := strings.Cut(rest, "=")
	if !ok {
		return Command{}, fmt.Errorf("let body %q does not have the format <name> = <expr>", rest)
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "#") || strings.ContainsAny(name, "() \t") {
		return Command{}, fmt.Errorf("let: %q is not a valid identifier", name)
	}
	return Command{Kind: Let, Name: name, Arg: strings.TrimSpace(body)}, nil
}
