package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

func registerPrint(r *Registries) error {
	if err := r.keyword("@print", lexer.TokenPrint, parsePrint); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindPrint, emitPrint, nil)
}

func parsePrint(p *parser.Parser) (parser.Node, error) {
	tok, err := p.Eat(lexer.TokenPrint)
	if err != nil {
		return nil, err
	}

	e, err := p.Parenthesized()
	if err != nil {
		return nil, err
	}

	return &parser.Print{Expr: e, Pos: tok.Pos}, nil
}

func emitPrint(g *compiler.Generator, n parser.Node) error {
	if _, err := g.Expression(n.(*parser.Print).Expr); err != nil {
		return err
	}

	g.Op(bytecode.OpPrint)

	return nil
}
