package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @var = getEnv(@NAME) reads the NAME environment variable at run time.
// @var = getEnv("text") stores text.

func registerEnvVar(r *Registries) error {
	if err := r.keyword("getEnv", lexer.TokenGetEnv, parseEnvVar); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindEnvVarAssign, emitEnvVar, declareEnvVar)
}

func parseEnvVar(p *parser.Parser) (parser.Node, error) {
	tok := p.Current()

	name, pos, err := assignTarget(p, tok, "getEnv")
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenGetEnv); err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenLParen); err != nil {
		return nil, err
	}

	n := &parser.EnvVarAssign{Var: name, Pos: pos}

	if p.Check(lexer.TokenString) {
		n.Source = p.Current().Lexeme
		n.Literal = true

		_, err = p.Eat(lexer.TokenString)
	} else {
		n.Source, err = p.ParseVarName()
	}

	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenRParen); err != nil {
		return nil, err
	}

	return n, nil
}

func declareEnvVar(g *compiler.Generator, n parser.Node) error {
	g.Declare(n.(*parser.EnvVarAssign).Var, bytecode.KindString)
	return nil
}

func emitEnvVar(g *compiler.Generator, n parser.Node) error {
	s := n.(*parser.EnvVarAssign)

	if err := g.Constant(bytecode.Str(s.Source)); err != nil {
		return err
	}

	if !s.Literal {
		g.Op(bytecode.OpGetEnv)
	}

	return g.StoreVar(s.Var, bytecode.KindString)
}
