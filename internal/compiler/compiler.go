package compiler

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"atlang/internal/bytecode"
	"atlang/internal/diag"
	"atlang/internal/parser"
)

// Operand describes the static result of an expression.
type Operand struct {
	Type    bytecode.ValueKind // KindNone if only known at run time
	Numeric bool               // integer arithmetic operand
	Desc    string             // for diagnostics
}

// Label is a jump target allocated before its position is known.
type Label int

type label struct {
	target int // -1 until marked
	refs   []int
}

// Generator lowers a program into a single chunk.
// A Generator is used for one program only.
type Generator struct {
	registry *Registry
	chunk    *bytecode.Chunk
	store    *Store

	labels []label
	temps  int
	line   int
}

func NewGenerator(registry *Registry) *Generator {
	chunk := bytecode.NewChunk()

	return &Generator{
		registry: registry,
		chunk:    chunk,
		store:    newStore(chunk),
	}
}

// Generate emits nodes in program order followed by OP_RETURN.
func (g *Generator) Generate(ctx context.Context, nodes []parser.Node) (_ *bytecode.Chunk, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "generate", "statements", len(nodes))
	defer tr.Finish("err", &err)

	err = g.DeclareAll(nodes)
	if err != nil {
		return nil, err
	}

	err = g.store.seal()
	if err != nil {
		return nil, errors.Wrap(err, "allocate variables")
	}

	err = g.EmitAll(nodes)
	if err != nil {
		return nil, err
	}

	g.Op(bytecode.OpReturn)

	for i, l := range g.labels {
		if l.target < 0 {
			return nil, errors.New("label %d never marked", i)
		}
	}

	tr.Printw("generated", "code", len(g.chunk.Code), "constants", len(g.chunk.Constants), "locals", len(g.chunk.Locals), "cells", len(g.chunk.Cells))

	return g.chunk, nil
}

// DeclareAll runs the declaration hooks of nodes, recursively through
// the hooks of nested bodies.
func (g *Generator) DeclareAll(nodes []parser.Node) error {
	for _, n := range nodes {
		e, ok := g.registry.stmts[n.Kind()]
		if !ok {
			return g.missing(n)
		}

		if e.declare == nil {
			continue
		}

		if err := e.declare(g, n); err != nil {
			return err
		}
	}

	return nil
}

// Declare records that name is assigned a value of type t.
func (g *Generator) Declare(name string, t bytecode.ValueKind) {
	g.store.declare(name, t)
}

func (g *Generator) EmitAll(nodes []parser.Node) error {
	for _, n := range nodes {
		if err := g.Emit(n); err != nil {
			return err
		}
	}

	return nil
}

func (g *Generator) Emit(n parser.Node) error {
	e, ok := g.registry.stmts[n.Kind()]
	if !ok {
		return g.missing(n)
	}

	g.line = n.Position().Line

	return e.emit(g, n)
}

// Expression emits e leaving its value on the stack.
func (g *Generator) Expression(e parser.Expr) (Operand, error) {
	fn, ok := g.registry.exprs[e.Kind()]
	if !ok {
		return Operand{}, g.missing(e)
	}

	return fn(g, e)
}

// Load pushes the value of the named variable.
func (g *Generator) Load(name string) (Operand, error) {
	b, err := g.store.Resolve(name)
	if err != nil {
		return Operand{}, err
	}

	op := bytecode.OpLoadLocal
	if b.Dynamic {
		op = bytecode.OpLoadCell
	}

	return Operand{Type: b.Type, Desc: "variable @" + name}, g.OpU16(op, b.Index)
}

// StoreVar pops the top of the stack into the named variable.
// t is the static type of the stored value.
func (g *Generator) StoreVar(name string, t bytecode.ValueKind) error {
	b, err := g.store.Resolve(name)
	if err != nil {
		return err
	}

	if b.Dynamic {
		return g.OpU16(bytecode.OpStoreCell, b.Index)
	}

	if b.Type != t {
		return errors.New("store %v into %v slot @%s", t, b.Type, name)
	}

	return g.OpU16(bytecode.OpStoreLocal, b.Index)
}

// Temp allocates a hidden local slot.
func (g *Generator) Temp(prefix string, t bytecode.ValueKind) (int, error) {
	name := fmt.Sprintf("$%s%d", prefix, g.temps)
	g.temps++

	return g.chunk.AddLocal(name, t)
}

func (g *Generator) LoadLocal(slot int) error  { return g.OpU16(bytecode.OpLoadLocal, slot) }
func (g *Generator) StoreLocal(slot int) error { return g.OpU16(bytecode.OpStoreLocal, slot) }

// Constant pushes v.
func (g *Generator) Constant(v bytecode.Value) error {
	idx, err := g.chunk.AddConstant(v)
	if err != nil {
		return err
	}

	return g.OpU16(bytecode.OpConstant, idx)
}

func (g *Generator) Op(op bytecode.OpCode) {
	g.chunk.WriteOp(op, g.line)
}

func (g *Generator) OpU16(op bytecode.OpCode, arg int) error {
	if arg < 0 || arg > 0xffff {
		return errors.New("%v operand out of range: %d", op, arg)
	}

	g.chunk.WriteOp(op, g.line)
	g.chunk.WriteU16(uint16(arg), g.line)

	return nil
}

func (g *Generator) NewLabel() Label {
	g.labels = append(g.labels, label{target: -1})
	return Label(len(g.labels) - 1)
}

// Mark binds l to the current position and patches earlier jumps to it.
func (g *Generator) Mark(l Label) error {
	target := len(g.chunk.Code)
	if target > 0xffff {
		return errors.New("program too large: jump target %d", target)
	}

	g.labels[l].target = target

	for _, ref := range g.labels[l].refs {
		g.chunk.PatchU16(ref, uint16(target))
	}

	g.labels[l].refs = nil

	return nil
}

// Jump emits a jump instruction to l.
func (g *Generator) Jump(op bytecode.OpCode, l Label) error {
	g.chunk.WriteOp(op, g.line)

	if t := g.labels[l].target; t >= 0 {
		g.chunk.WriteU16(uint16(t), g.line)
		return nil
	}

	g.labels[l].refs = append(g.labels[l].refs, len(g.chunk.Code))
	g.chunk.WriteU16(0xffff, g.line)

	return nil
}

// TypeError builds a diagnostic positioned at n.
func (g *Generator) TypeError(n parser.Node, format string, args ...interface{}) error {
	pos := n.Position()
	return diag.Type(pos.Line, pos.Column, format, args...)
}

func (g *Generator) Bindings() []Binding {
	return g.store.Bindings()
}

func (g *Generator) missing(n parser.Node) error {
	return errors.New("no emitter registered for %v", n.Kind())
}
