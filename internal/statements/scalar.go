package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @var = "text" and @var = 123. The construct has no keyword: it is
// selected by the literal following the assignment.

func registerScalar(r *Registries) error {
	for _, t := range []lexer.TokenType{lexer.TokenString, lexer.TokenNumber} {
		if err := r.Parsers.Register(t, parseScalar); err != nil {
			return err
		}
	}

	return r.Emitters.Statement(parser.KindScalarAssign, emitScalar, declareScalar)
}

func parseScalar(p *parser.Parser) (parser.Node, error) {
	tok := p.Current()

	name, pos, err := assignTarget(p, tok, "literal")
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(tok.Type); err != nil {
		return nil, err
	}

	n := &parser.ScalarAssign{Var: name, Pos: pos}

	if tok.Type == lexer.TokenNumber {
		n.Value = parser.ScalarValue{IsInt: true, Int: tok.Number}
	} else {
		n.Value = parser.ScalarValue{Str: tok.Lexeme}
	}

	return n, nil
}

func scalarType(v parser.ScalarValue) bytecode.ValueKind {
	if v.IsInt {
		return bytecode.KindInt
	}

	return bytecode.KindString
}

func declareScalar(g *compiler.Generator, n parser.Node) error {
	s := n.(*parser.ScalarAssign)
	g.Declare(s.Var, scalarType(s.Value))

	return nil
}

func emitScalar(g *compiler.Generator, n parser.Node) error {
	s := n.(*parser.ScalarAssign)

	v := bytecode.Str(s.Value.Str)
	if s.Value.IsInt {
		v = bytecode.Int(s.Value.Int)
	}

	if err := g.Constant(v); err != nil {
		return err
	}

	return g.StoreVar(s.Var, scalarType(s.Value))
}
