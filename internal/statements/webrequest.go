package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @var = @getWeb(@URL) and @var = @postWeb(@URL, @BODY) store the
// response body. Its type is only known at run time.

func registerWebRequest(r *Registries) error {
	if err := r.keyword("@getWeb", lexer.TokenGetWeb, parseWebRequest); err != nil {
		return err
	}

	if err := r.keyword("@postWeb", lexer.TokenPostWeb, parseWebRequest); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindWebRequest, emitWebRequest, declareWebRequest)
}

func parseWebRequest(p *parser.Parser) (parser.Node, error) {
	tok := p.Current()

	result, pos, err := assignTarget(p, tok, tok.Lexeme)
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(tok.Type); err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenLParen); err != nil {
		return nil, err
	}

	n := &parser.WebRequest{Result: result, Method: parser.MethodGet, Pos: pos}

	n.URLVar, err = p.ParseVarName()
	if err != nil {
		return nil, err
	}

	if tok.Type == lexer.TokenPostWeb {
		n.Method = parser.MethodPost

		n.BodyVar, err = p.ParseVarName()
		if err != nil {
			return nil, err
		}
	}

	if _, err = p.Eat(lexer.TokenRParen); err != nil {
		return nil, err
	}

	return n, nil
}

func declareWebRequest(g *compiler.Generator, n parser.Node) error {
	g.Declare(n.(*parser.WebRequest).Result, bytecode.KindNone)
	return nil
}

func emitWebRequest(g *compiler.Generator, n parser.Node) (err error) {
	s := n.(*parser.WebRequest)

	switch s.Method {
	case parser.MethodGet:
		if _, err = g.Load(s.URLVar); err != nil {
			return err
		}

		g.Op(bytecode.OpHTTPGet)
	case parser.MethodPost:
		if _, err = g.Load(s.URLVar); err != nil {
			return err
		}

		if _, err = g.Load(s.BodyVar); err != nil {
			return err
		}

		g.Op(bytecode.OpHTTPPost)
	default:
		err = g.Constant(bytecode.Str("Unsupported HTTP method: " + s.Method))
		if err != nil {
			return err
		}
	}

	return g.StoreVar(s.Result, bytecode.KindNone)
}
