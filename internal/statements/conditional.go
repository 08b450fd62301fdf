package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @if(a == b) { ... } @else { ... }
// Both sides are compared as strings. The else block is optional.

func registerConditional(r *Registries) error {
	if err := r.keyword("@if", lexer.TokenIf, parseConditional); err != nil {
		return err
	}

	if err := r.keyword("@else", lexer.TokenElse, parseDanglingElse); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindConditional, emitConditional, declareConditional)
}

func parseConditional(p *parser.Parser) (parser.Node, error) {
	tok, err := p.Eat(lexer.TokenIf)
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenLParen); err != nil {
		return nil, err
	}

	n := &parser.Conditional{Pos: tok.Pos}

	n.Left, err = p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if !p.Check(lexer.TokenDoubleEqual) {
		return nil, p.Errorf(p.Current(), "only == is supported in conditions, got %v", p.Current().Type)
	}

	if _, err = p.Eat(lexer.TokenDoubleEqual); err != nil {
		return nil, err
	}

	n.Right, err = p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenRParen); err != nil {
		return nil, err
	}

	n.Then, err = p.ParseBlock()
	if err != nil {
		return nil, err
	}

	if p.Check(lexer.TokenElse) {
		if _, err = p.Eat(lexer.TokenElse); err != nil {
			return nil, err
		}

		n.Else, err = p.ParseBlock()
		if err != nil {
			return nil, err
		}
	}

	return n, nil
}

func parseDanglingElse(p *parser.Parser) (parser.Node, error) {
	return nil, p.Errorf(p.Current(), "@else without @if")
}

func declareConditional(g *compiler.Generator, n parser.Node) error {
	s := n.(*parser.Conditional)

	if err := g.DeclareAll(s.Then); err != nil {
		return err
	}

	return g.DeclareAll(s.Else)
}

func emitConditional(g *compiler.Generator, n parser.Node) (err error) {
	s := n.(*parser.Conditional)

	if _, err = g.Expression(s.Left); err != nil {
		return err
	}

	if _, err = g.Expression(s.Right); err != nil {
		return err
	}

	g.Op(bytecode.OpEqual)

	elseL := g.NewLabel()
	end := g.NewLabel()

	if err = g.Jump(bytecode.OpJumpIfFalse, elseL); err != nil {
		return err
	}

	if err = g.EmitAll(s.Then); err != nil {
		return err
	}

	if err = g.Jump(bytecode.OpJump, end); err != nil {
		return err
	}

	if err = g.Mark(elseL); err != nil {
		return err
	}

	if err = g.EmitAll(s.Else); err != nil {
		return err
	}

	return g.Mark(end)
}
