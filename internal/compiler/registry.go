package compiler

import (
	"sort"

	"tlog.app/go/errors"

	"atlang/internal/parser"
)

type (
	// EmitFunc lowers a statement node into instructions.
	EmitFunc func(g *Generator, n parser.Node) error

	// DeclareFunc reports the variables a statement assigns, before any
	// code is emitted. It may be nil for statements assigning nothing.
	DeclareFunc func(g *Generator, n parser.Node) error

	// ExprFunc lowers an expression, leaving its value on the stack.
	ExprFunc func(g *Generator, e parser.Expr) (Operand, error)
)

type stmtEntry struct {
	emit    EmitFunc
	declare DeclareFunc
}

// Registry maps AST node kinds to the routines generating their code.
type Registry struct {
	stmts map[parser.NodeKind]stmtEntry
	exprs map[parser.NodeKind]ExprFunc
}

func NewRegistry() *Registry {
	return &Registry{
		stmts: make(map[parser.NodeKind]stmtEntry),
		exprs: make(map[parser.NodeKind]ExprFunc),
	}
}

func (r *Registry) Statement(kind parser.NodeKind, emit EmitFunc, declare DeclareFunc) error {
	if emit == nil {
		return errors.New("nil emitter for %v", kind)
	}

	if _, ok := r.stmts[kind]; ok {
		return errors.New("emitter for %v already registered", kind)
	}

	r.stmts[kind] = stmtEntry{emit: emit, declare: declare}

	return nil
}

func (r *Registry) Expression(kind parser.NodeKind, fn ExprFunc) error {
	if fn == nil {
		return errors.New("nil emitter for %v", kind)
	}

	if _, ok := r.exprs[kind]; ok {
		return errors.New("emitter for %v already registered", kind)
	}

	r.exprs[kind] = fn

	return nil
}

// Validate checks that every statement and expression kind has an emitter.
func (r *Registry) Validate() error {
	var missing []string

	for _, k := range parser.StatementKinds() {
		if _, ok := r.stmts[k]; !ok {
			missing = append(missing, string(k))
		}
	}

	for _, k := range parser.ExpressionKinds() {
		if _, ok := r.exprs[k]; !ok {
			missing = append(missing, string(k))
		}
	}

	if len(missing) != 0 {
		sort.Strings(missing)
		return errors.New("no emitter registered for %v", missing)
	}

	return nil
}
