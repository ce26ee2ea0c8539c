// Package parser turns s-expression text into expression trees.
//
// Every parse function consumes a prefix of its input and returns the parsed
// value together with the unconsumed suffix. The grammar is decided by the
// next character alone, so there is no backtracking:
//
//	s_expr     := '(' atom (ws atom)* ')'
//	atom       := s_expr | reference | identifier
//	reference  := '#' digits ( vector_lit | term_idx )
//	vector_lit := '[' float (',' float)* ']'
//	term_idx   := ('p'|'n') digits
//	identifier := run of non-whitespace, non-')' characters
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"termeval/internal/domain"
	"termeval/internal/expr"
)

// Error describes a parse failure and the text it occurred in.
type Error struct {
	Msg  string
	Text string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Text == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, e.Text)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolver resolves identifiers to the references bound to them.
type Resolver interface {
	Lookup(name string) (domain.TermReference, error)
}

// ParseApplication parses a complete parenthesized application.
func ParseApplication(text string, env Resolver) (*expr.App, error) {
	app, rest, err := SExpression(strings.TrimSpace(text), env)
	if err != nil {
		return nil, err
	}
	if err := checkTrailing(rest); err != nil {
		return nil, err
	}
	return app, nil
}

// ParseExpression parses a complete atom: an application, a reference or an identifier.
func ParseExpression(text string, env Resolver) (expr.Expression, error) {
	e, rest, err := Atom(strings.TrimSpace(text), env)
	if err != nil {
		return nil, err
	}
	if err := checkTrailing(rest); err != nil {
		return nil, err
	}
	return e, nil
}

func checkTrailing(rest string) error {
	if rest = strings.TrimSpace(rest); rest != "" {
		return &Error{Msg: "unexpected input after expression", Text: rest}
	}
	return nil
}

// SExpression parses '(' atom atom... ')' and builds the curried application.
func SExpression(text string, env Resolver) (*expr.App, string, error) {
	inner, ok := strings.CutPrefix(text, "(")
	if !ok {
		return nil, text, &Error{Msg: "missing left paren for sub-expression", Text: text}
	}
	rest := trimLeft(inner)
	var atoms []expr.Expression
	for !strings.HasPrefix(rest, ")") {
		if rest == "" {
			return nil, rest, &Error{Msg: "ran out of input while parsing s-expression", Text: text}
		}
		atom, next, err := Atom(rest, env)
		if err != nil {
			return nil, next, err
		}
		atoms = append(atoms, atom)
		rest = trimLeft(next)
	}
	rest = rest[1:]
	app, err := expr.BuildApplication(atoms)
	if err != nil {
		return nil, rest, &Error{Text: text[:len(text)-len(rest)], Err: err}
	}
	return app, rest, nil
}

// Atom dispatches on the first character of text.
func Atom(text string, env Resolver) (expr.Expression, string, error) {
	switch {
	case text == "":
		return nil, text, &Error{Msg: "cannot parse atom: empty text"}
	case text[0] == '(':
		app, rest, err := SExpression(text, env)
		if err != nil {
			return nil, rest, err
		}
		return app, rest, nil
	case text[0] == '#':
		ref, rest, err := Reference(text)
		if err != nil {
			return nil, rest, err
		}
		return &expr.Ref{Term: ref}, rest, nil
	default:
		ref, rest, err := Identifier(text, env)
		if err != nil {
			return nil, rest, err
		}
		return &expr.Ref{Term: ref}, rest, nil
	}
}

// Reference parses '#' followed by a type id and a vector literal or term index.
func Reference(text string) (domain.TermReference, string, error) {
	body, ok := strings.CutPrefix(text, "#")
	if !ok {
		return nil, text, &Error{Msg: "missing pound sign for reference", Text: text}
	}
	n := leadingDigits(body)
	if n == len(body) {
		return nil, "", &Error{Msg: "ran out of input while parsing reference", Text: text}
	}
	typeID, err := parseInt(body[:n], text)
	if err != nil {
		return nil, text, err
	}
	suffix := body[n:]
	if strings.HasPrefix(suffix, "[") {
		vec, rest, err := Vector(suffix)
		if err != nil {
			return nil, rest, err
		}
		return domain.VectorRef{Type: domain.TypeID(typeID), Vec: vec}, rest, nil
	}
	idx, rest, err := TermIndex(suffix)
	if err != nil {
		return nil, rest, err
	}
	return domain.FunctionRef{Ptr: domain.TermPointer{Type: domain.TypeID(typeID), Index: idx}}, rest, nil
}

// TermIndex parses 'p' or 'n' followed by digits.
func TermIndex(text string) (domain.TermIndex, string, error) {
	var kind domain.IndexKind
	switch {
	case strings.HasPrefix(text, "p"):
		kind = domain.PrimitiveIndex
	case strings.HasPrefix(text, "n"):
		kind = domain.NonPrimitiveIndex
	default:
		return domain.TermIndex{}, text, &Error{Msg: "cannot parse term index", Text: text}
	}
	body := text[1:]
	if body == "" {
		return domain.TermIndex{}, body, &Error{Msg: "ran out of input while parsing term index", Text: text}
	}
	n := leadingDigits(body)
	v, err := parseInt(body[:n], text)
	if err != nil {
		return domain.TermIndex{}, text, err
	}
	return domain.TermIndex{Kind: kind, N: v}, body[n:], nil
}

// Vector parses '[' float (',' float)* ']'. Only finite floats are accepted.
func Vector(text string) ([]float64, string, error) {
	inner, ok := strings.CutPrefix(text, "[")
	if !ok {
		return nil, text, &Error{Msg: "missing left bracket for vector", Text: text}
	}
	content, rest, ok := strings.Cut(inner, "]")
	if !ok {
		return nil, text, &Error{Msg: "missing right bracket for vector", Text: text}
	}
	fields := strings.Split(content, ",")
	vec := make([]float64, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		f, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, text, &Error{Msg: "malformed float", Text: field}
		}
		vec = append(vec, f)
	}
	return vec, rest, nil
}

// Identifier reads a name and resolves it immediately.
func Identifier(text string, env Resolver) (domain.TermReference, string, error) {
	end := strings.IndexFunc(text, func(r rune) bool { return unicode.IsSpace(r) || r == ')' })
	if end < 0 {
		end = len(text)
	}
	name := text[:end]
	if name == "" {
		return nil, text, &Error{Msg: "missing identifier", Text: text}
	}
	ref, err := env.Lookup(name)
	if err != nil {
		return nil, text, &Error{Err: err}
	}
	return ref, text[end:], nil
}

func trimLeft(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }

func leadingDigits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func parseInt(digits, context string) (int, error) {
	v, err := strconv.Atoi(digits)
	if err != nil || v < 0 {
		return 0, &Error{Msg: fmt.Sprintf("malformed integer %q", digits), Text: context}
	}
	return v, nil
}
