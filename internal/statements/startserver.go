package statements

import (
	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// @startServer(@ROOT, @PORT) serves static files from ROOT forever.
//
// The accept loop is emitted as plain instructions:
//
//	        load ROOT; ABS_PATH; load PORT; LISTEN; store $server
//	accept: load $server; ACCEPT; store $conn
//	        load $server; load $conn; ADMIT; JUMP_IF_FALSE reject
//	        load $server; load $conn; SERVE; JUMP accept
//	reject: load $server; load $conn; REJECT; JUMP accept
//
// SERVE hands the connection to its own goroutine and returns at once.

func registerStartServer(r *Registries) error {
	if err := r.keyword("startServer", lexer.TokenStartServer, parseStartServer); err != nil {
		return err
	}

	return r.Emitters.Statement(parser.KindStartServer, emitStartServer, nil)
}

func parseStartServer(p *parser.Parser) (parser.Node, error) {
	tok, err := p.Eat(lexer.TokenStartServer)
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenLParen); err != nil {
		return nil, err
	}

	n := &parser.StartServer{Pos: tok.Pos}

	n.RootVar, err = p.ParseVarName()
	if err != nil {
		return nil, err
	}

	n.PortVar, err = p.ParseVarName()
	if err != nil {
		return nil, err
	}

	if _, err = p.Eat(lexer.TokenRParen); err != nil {
		return nil, err
	}

	return n, nil
}

func emitStartServer(g *compiler.Generator, n parser.Node) (err error) {
	s := n.(*parser.StartServer)

	server, err := g.Temp("server", bytecode.KindHandle)
	if err != nil {
		return err
	}

	conn, err := g.Temp("conn", bytecode.KindHandle)
	if err != nil {
		return err
	}

	if _, err = g.Load(s.RootVar); err != nil {
		return err
	}

	g.Op(bytecode.OpAbsPath)

	if _, err = g.Load(s.PortVar); err != nil {
		return err
	}

	g.Op(bytecode.OpListen)

	accept := g.NewLabel()
	reject := g.NewLabel()

	steps := []func() error{
		func() error { return g.StoreLocal(server) },

		func() error { return g.Mark(accept) },
		func() error { return g.LoadLocal(server) },
		op(g, bytecode.OpAccept),
		func() error { return g.StoreLocal(conn) },

		func() error { return g.LoadLocal(server) },
		func() error { return g.LoadLocal(conn) },
		op(g, bytecode.OpAdmit),
		func() error { return g.Jump(bytecode.OpJumpIfFalse, reject) },

		func() error { return g.LoadLocal(server) },
		func() error { return g.LoadLocal(conn) },
		op(g, bytecode.OpServe),
		func() error { return g.Jump(bytecode.OpJump, accept) },

		func() error { return g.Mark(reject) },
		func() error { return g.LoadLocal(server) },
		func() error { return g.LoadLocal(conn) },
		op(g, bytecode.OpReject),
		func() error { return g.Jump(bytecode.OpJump, accept) },
	}

	for _, step := range steps {
		if err = step(); err != nil {
			return err
		}
	}

	return nil
}

func op(g *compiler.Generator, o bytecode.OpCode) func() error {
	return func() error {
		g.Op(o)
		return nil
	}
}
