// Package statements holds the language constructs. Each construct owns
// its keywords, its parser and its code generator, and registers them
// through Register. Adding a construct means adding a module here; the
// lexer, parser and generator are not touched.
package statements

import (
	"tlog.app/go/errors"

	"atlang/internal/compiler"
	"atlang/internal/lexer"
	"atlang/internal/parser"
)

// Registries is the set of tables a module contributes to.
type Registries struct {
	Tokens   *lexer.Registry
	Parsers  *parser.Registry
	Emitters *compiler.Registry
}

// Module registers one construct.
type Module struct {
	Name     string
	Register func(r *Registries) error
}

// Modules lists the constructs of the language.
func Modules() []Module {
	return []Module{
		{Name: "expression", Register: registerExpressions},
		{Name: "envvar", Register: registerEnvVar},
		{Name: "scalar", Register: registerScalar},
		{Name: "print", Register: registerPrint},
		{Name: "conditional", Register: registerConditional},
		{Name: "exit", Register: registerExit},
		{Name: "webrequest", Register: registerWebRequest},
		{Name: "startserver", Register: registerStartServer},
	}
}

// New builds registries filled by every module and checks that every
// node kind can be generated.
func New() (*Registries, error) {
	r := &Registries{
		Tokens:   lexer.NewRegistry(),
		Parsers:  parser.NewRegistry(),
		Emitters: compiler.NewRegistry(),
	}

	for _, m := range Modules() {
		if err := m.Register(r); err != nil {
			return nil, errors.Wrap(err, "module %v", m.Name)
		}
	}

	if err := r.Emitters.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registries) keyword(spelling string, t lexer.TokenType, fn parser.StatementParser) error {
	if err := r.Tokens.Register(spelling, t); err != nil {
		return err
	}

	return r.Parsers.Register(t, fn)
}

// assignTarget takes the pending assignment name or fails at tok.
func assignTarget(p *parser.Parser, tok lexer.Token, construct string) (string, lexer.Pos, error) {
	name, pos, ok := p.TakePending()
	if !ok {
		return "", tok.Pos, p.Errorf(tok, "%s must be assigned to a variable", construct)
	}

	return name, pos, nil
}
