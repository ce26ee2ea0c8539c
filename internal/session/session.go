// Package session implements the REPL command surface: it owns the binding
// environment and the currently loaded context, and renders each command's
// result as text.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"

	"termeval/internal/bindings"
	"termeval/internal/domain"
	"termeval/internal/model"
	"termeval/internal/modelstore"
	"termeval/internal/ontology"
	"termeval/internal/parser"
	"termeval/internal/state"
	"termeval/internal/termindex"
)

// ErrNoContext is returned by commands that need a loaded context when none is.
var ErrNoContext = errors.New("this command may not be executed without a currently-loaded context")

// Options are the collaborators a Session is assembled from.
type Options struct {
	Loader ontology.Loader
	Store  modelstore.Store
	Index  termindex.Index
	Hyper  model.Hyperparams
	Source rand.Source
	TopK   int
	Logger *log.Logger
}

// Session is not safe for concurrent use.
type Session struct {
	bindings *bindings.Bindings
	loader   ontology.Loader
	store    modelstore.Store
	index    termindex.Index
	hyper    model.Hyperparams
	src      rand.Source
	topK     int
	logger   *log.Logger
	context  *state.ContextState
}

func New(opts Options) *Session {
	s := &Session{
		bindings: bindings.New(),
		loader:   opts.Loader,
		store:    opts.Store,
		index:    opts.Index,
		hyper:    opts.Hyper,
		src:      opts.Source,
		topK:     opts.TopK,
		logger:   opts.Logger,
	}
	if s.loader == nil {
		s.loader = ontology.Builtin{}
	}
	if s.hyper == (model.Hyperparams{}) {
		s.hyper = model.DefaultHyperparams()
	}
	if s.src == nil {
		s.src = rand.NewSource(1)
	}
	if s.topK <= 0 {
		s.topK = 5
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

// HasContext reports whether a context is loaded.
func (s *Session) HasContext() bool { return s.context != nil }

// Bindings exposes the binding environment.
func (s *Session) Bindings() *bindings.Bindings { return s.bindings }

// Execute parses and runs one command line.
func (s *Session) Execute(line string) (string, error) {
	cmd, err := ParseCommandLine(line)
	if err != nil {
		return "", err
	}
	return s.Run(cmd)
}

// Run executes a parsed command.
func (s *Session) Run(cmd Command) (string, error) {
	s.logger.Printf("command kind=%d arg=%q", cmd.Kind, cmd.Arg)
	if cmd.needsContext() && s.context == nil {
		return "", ErrNoContext
	}
	switch cmd.Kind {
	case Help:
		return helpText, nil
	case Parse:
		return s.parse(cmd.Arg)
	case Let:
		return s.let(cmd.Name, cmd.Arg)
	case Evaluate:
		return s.let("ans", cmd.Arg)
	case Simulate:
		return s.simulate(cmd.Arg)
	case GenerateContext:
		return s.generateContext(cmd.Arg)
	case LoadContext:
		return s.loadContext(cmd.Arg)
	case UnloadContext:
		s.context = nil
		return "context unloaded", nil
	case SaveContext:
		return s.saveContext(cmd.Arg)
	case ListTypes:
		return s.listTypes(), nil
	case ListPrimitiveTerms:
		return s.listPrimitiveTerms(cmd.Arg)
	case SaveModels:
		return s.saveModels(cmd.Arg)
	case LoadModels:
		return s.loadModels(cmd.Arg)
	case UpdateModels:
		return s.updateModels()
	case Nearest:
		return s.nearest(cmd.Arg)
	case ListBindings:
		return s.listBindings(), nil
	}
	return "", fmt.Errorf("command kind %d: %w", cmd.Kind, ErrUnknownCommand)
}

const helpText = `generate_context <path>: generates a context from the parameter file at path
load_context <path>: loads a serialized context from path
unload_context: unloads the current context
save_context <path>: writes the current serialized context to path
list_types: lists every type number with its definition
list_primitive_terms <type> | list_prim_terms <type>: lists the primitive terms of a type
parse <expr>: parses an s-expression and renders what it parsed as
let <name> = <expr>: evaluates the expression and binds the result to name
evaluate <expr> | eval <expr>: evaluates the expression, binds it to ans and prints it
simulate <expr> | sim <expr>: simulates the expression with a drawn sample and prints the result
nearest <expr>: simulates the expression and lists the closest known terms of its type
update_models | update: folds pending evaluations into the term embeddings
save_models <path>: saves the model state to path
load_models <path>: loads the model state from path
bindings: lists the bound names
help: prints this help screen`

func (s *Session) parse(text string) (string, error) {
	app, err := parser.ParseApplication(text, s.bindings)
	if err != nil {
		return "", err
	}
	return app.String(), nil
}

func (s *Session) let(name, text string) (string, error) {
	e, err := parser.ParseExpression(text, s.bindings)
	if err != nil {
		return "", err
	}
	ref, err := s.context.Eval(e)
	if err != nil {
		return "", err
	}
	s.bindings.Write(name, ref)
	return ref.String(), nil
}

func (s *Session) simulate(text string) (string, error) {
	e, err := parser.ParseExpression(text, s.bindings)
	if err != nil {
		return "", err
	}
	v, err := s.context.Simulate(e, s.src)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (s *Session) generateContext(path string) (string, error) {
	params, err := readPath(path)
	if err != nil {
		return "", fmt.Errorf("generate context: %w", err)
	}
	data, err := s.loader.Generate(params)
	if err != nil {
		return "", fmt.Errorf("generate context: %w", err)
	}
	return s.install(data)
}

func (s *Session) loadContext(path string) (string, error) {
	data, err := readPath(path)
	if err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}
	return s.install(data)
}

// install replaces any loaded context with a fresh model over data.
func (s *Session) install(data []byte) (string, error) {
	ctx, err := s.loader.Deserialize(data)
	if err != nil {
		return "", fmt.Errorf("deserialize context: %w", err)
	}
	cs, err := state.New(data, ctx, s.hyper)
	if err != nil {
		return "", err
	}
	s.context = cs
	return fmt.Sprintf("loaded context with %d types", ctx.NumTypes()), nil
}

func (s *Session) saveContext(path string) (string, error) {
	if err := writePath(path, s.context.ContextBytes()); err != nil {
		return "", fmt.Errorf("save context: %w", err)
	}
	return "wrote context to " + path, nil
}

func (s *Session) listTypes() string {
	ctx := s.context.Context()
	lines := lo.Times(ctx.NumTypes(), func(i int) string {
		return fmt.Sprintf("#%d: %s", i, ctx.Display(domain.TypeID(i)))
	})
	return strings.Join(lines, "\n")
}

func (s *Session) listPrimitiveTerms(arg string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("unable to parse type number from %q: %w", arg, err)
	}
	ctx := s.context.Context()
	t := domain.TypeID(n)
	if _, err := ctx.Type(t); err != nil {
		return "", err
	}
	lines := lo.Map(ctx.Primitives(t), func(p ontology.PrimitiveTerm, i int) string {
		return fmt.Sprintf("p%d: %s", i, p.Name)
	})
	return strings.Join(lines, "\n"), nil
}

func (s *Session) saveModels(path string) (string, error) {
	if s.store == nil {
		return "", errors.New("no model store configured")
	}
	snap, err := s.context.Snapshot()
	if err != nil {
		return "", err
	}
	full, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(full, snap); err != nil {
		return "", fmt.Errorf("save models: %w", err)
	}
	return "saved models to " + path, nil
}

func (s *Session) loadModels(path string) (string, error) {
	if s.store == nil {
		return "", errors.New("no model store configured")
	}
	full, err := expandPath(path)
	if err != nil {
		return "", err
	}
	snap, err := s.store.Load(full)
	if err != nil {
		return "", fmt.Errorf("load models: %w", err)
	}
	if err := s.context.Restore(snap); err != nil {
		return "", err
	}
	return "loaded models from " + path, nil
}

func (s *Session) updateModels() (string, error) {
	sum, err := s.context.UpdateModels()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("updated %d terms from %d observations", sum.Terms, sum.Observations), nil
}

func (s *Session) nearest(text string) (string, error) {
	if s.index == nil {
		return "", errors.New("no term index configured")
	}
	e, err := parser.ParseExpression(text, s.bindings)
	if err != nil {
		return "", err
	}
	v, err := s.context.Simulate(e, s.src)
	if err != nil {
		return "", err
	}
	values, err := s.context.TermValues(v.Type)
	if err != nil {
		return "", fmt.Errorf("nearest: %w", err)
	}
	if err := s.index.Init(len(v.Vec)); err != nil {
		return "", err
	}
	entries := lo.Map(values, func(tv model.TermValue, _ int) termindex.Entry {
		return termindex.Entry{Term: tv.Ptr, Label: tv.Name}
	})
	vectors := lo.Map(values, func(tv model.TermValue, _ int) []float64 { return tv.Value })
	if err := s.index.Upsert(entries, vectors); err != nil {
		return "", err
	}
	results, err := s.index.Search(v.Vec, s.topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "no known terms of type " + strconv.Itoa(int(v.Type)), nil
	}
	lines := lo.Map(results, func(r termindex.SearchResult, _ int) string { return r.String() })
	return strings.Join(lines, "\n"), nil
}

func (s *Session) listBindings() string {
	names := s.bindings.Names()
	if len(names) == 0 {
		return "no bindings"
	}
	lines := lo.Map(names, func(name string, _ int) string {
		ref, _ := s.bindings.Lookup(name)
		return name + " = " + ref.String()
	})
	return strings.Join(lines, "\n")
}

// expandPath resolves environment variables and a leading ~.
func expandPath(path string) (string, error) {
	p, err := homedir.Expand(os.ExpandEnv(strings.TrimSpace(path)))
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return p, nil
}

func readPath(path string) ([]byte, error) {
	p, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func writePath(path string, data []byte) error {
	p, err := expandPath(path)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
