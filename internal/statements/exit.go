package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @exit(expr) stops the program. The value is converted to an integer
// (255 if it is not one) and clamped into [0, 255].

func registerExit(r *Registries) error {
	if err := r.keyword("@exit", lexer.TokenExit, parseExit); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindExit, emitExit, nil)
}

func parseExit(p *parser.Parser) (parser.Node, error) {
	tok, err := p.Eat(lexer.TokenExit)
	if err != nil {
		return nil, err
	}

	e, err := p.Parenthesized()
	if err != nil {
		return nil, err
	}

	return &parser.Exit{Expr: e, Pos: tok.Pos}, nil
}

func emitExit(g *compiler.Generator, n parser.Node) error {
	// an int slot is empty if its assignment was not reached, so the
	// conversion is emitted for every operand type
	if _, err := g.Expression(n.(*parser.Exit).Expr); err != nil {
		return err
	}

	g.Op(bytecode.OpToInt)

	g.Op(bytecode.OpClamp)
	g.Op(bytecode.OpExit)

	return nil
}
