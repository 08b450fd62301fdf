package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/parser"
)

func registerExpressions(r *Registries) error {
	for _, e := range []struct {
		kind parser.NodeKind
		fn   compiler.ExprFunc
	}{
		{parser.KindVarRef, emitVarRef},
		{parser.KindStringLit, emitStringLit},
		{parser.KindNumberLit, emitNumberLit},
		{parser.KindBinaryAdd, emitBinaryAdd},
	} {
		if err := r.Emitters.Expression(e.kind, e.fn); err != nil {
			return err
		}
	}

	return nil
}

func emitVarRef(g *compiler.Generator, e parser.Expr) (compiler.Operand, error) {
	return g.Load(e.(*parser.VarRef).Name)
}

func emitStringLit(g *compiler.Generator, e parser.Expr) (compiler.Operand, error) {
	s := e.(*parser.StringLit)

	return compiler.Operand{Type: bytecode.KindString, Desc: "string literal"}, g.Constant(bytecode.Str(s.Value))
}

func emitNumberLit(g *compiler.Generator, e parser.Expr) (compiler.Operand, error) {
	n := e.(*parser.NumberLit)

	return compiler.Operand{Type: bytecode.KindInt, Numeric: true, Desc: "number literal"}, g.Constant(bytecode.Int(n.Value))
}

// emitBinaryAdd adds integers if both sides are numeric and concatenates
// if neither is. Mixing the two is a type error.
func emitBinaryAdd(g *compiler.Generator, e parser.Expr) (compiler.Operand, error) {
	b := e.(*parser.BinaryAdd)

	l, err := g.Expression(b.Left)
	if err != nil {
		return l, err
	}

	r, err := g.Expression(b.Right)
	if err != nil {
		return r, err
	}

	switch {
	case l.Numeric && r.Numeric:
		g.Op(bytecode.OpAddInt)

		return compiler.Operand{Type: bytecode.KindInt, Numeric: true, Desc: "integer sum"}, nil
	case !l.Numeric && !r.Numeric:
		g.Op(bytecode.OpConcat)

		return compiler.Operand{Type: bytecode.KindString, Desc: "string concatenation"}, nil
	}

	return compiler.Operand{}, g.TypeError(b, "cannot add %s and %s", l.Desc, r.Desc)
}
