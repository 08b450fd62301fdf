package parser

import (
	"atlang/internal/diag"
	"atlang/internal/lexer"
)

// Parser pulls tokens from a Scanner and builds the program tree.
// The first error aborts parsing.
type Parser struct {
	scanner  *lexer.Scanner
	registry *Registry

	current lexer.Token

	pending    string
	pendingPos lexer.Pos
}

func NewParser(scanner *lexer.Scanner, registry *Registry) *Parser {
	p := &Parser{
		scanner:  scanner,
		registry: registry,
	}

	p.current = scanner.NextToken()

	return p
}

// ParseProgram parses statements until end of input.
func (p *Parser) ParseProgram() ([]Node, error) {
	var nodes []Node

	for {
		n, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}

		if n == nil {
			return nodes, nil
		}

		nodes = append(nodes, n)
	}
}

// ParseStatement parses one statement. It returns nil, nil at end of input.
func (p *Parser) ParseStatement() (Node, error) {
	if p.pending != "" {
		return nil, diag.Syntax(p.pendingPos.Line, p.pendingPos.Column, "cannot assign a statement block to @%s", p.pending)
	}

	if p.Check(lexer.TokenEOF) {
		return nil, nil
	}

	start := p.current

	if p.Check(lexer.TokenAt) {
		p.advance()

		if p.Check(lexer.TokenIdent) {
			name := p.advance()

			if _, err := p.Eat(lexer.TokenEqual); err != nil {
				return nil, err
			}

			// @var = @getWeb(...) and @var = getEnv(...) are both accepted
			if p.Check(lexer.TokenAt) {
				p.advance()
			}

			p.pending = name.Lexeme
			p.pendingPos = start.Pos
		}
	}

	fn, ok := p.registry.Lookup(p.current.Type)
	if !ok {
		return nil, p.unexpected()
	}

	n, err := fn(p)
	if err != nil {
		return nil, err
	}

	if p.pending != "" {
		return nil, diag.Syntax(start.Pos.Line, start.Pos.Column, "%v does not produce a value to assign to @%s", n.Kind(), p.pending)
	}

	return n, nil
}

// ParseBlock parses `{ statement* }`.
func (p *Parser) ParseBlock() ([]Node, error) {
	if _, err := p.Eat(lexer.TokenLBrace); err != nil {
		return nil, err
	}

	var nodes []Node

	for !p.Check(lexer.TokenRBrace) {
		if p.Check(lexer.TokenEOF) {
			return nil, p.expected(lexer.TokenRBrace)
		}

		n, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, n)
	}

	p.advance()

	return nodes, nil
}

// ParseExpression parses `simple (PLUS simple)*`, left associative.
func (p *Parser) ParseExpression() (Expr, error) {
	left, err := p.parseSimple()
	if err != nil {
		return nil, err
	}

	for p.Check(lexer.TokenPlus) {
		op := p.advance()

		right, err := p.parseSimple()
		if err != nil {
			return nil, err
		}

		left = &BinaryAdd{Left: left, Right: right, Pos: op.Pos}
	}

	return left, nil
}

func (p *Parser) parseSimple() (Expr, error) {
	tok := p.current

	switch tok.Type {
	case lexer.TokenAt:
		p.advance()

		name, err := p.Eat(lexer.TokenIdent)
		if err != nil {
			return nil, err
		}

		return &VarRef{Name: name.Lexeme, Pos: tok.Pos}, nil
	case lexer.TokenString:
		p.advance()
		return &StringLit{Value: tok.Lexeme, Pos: tok.Pos}, nil
	case lexer.TokenNumber:
		p.advance()
		return &NumberLit{Value: tok.Number, Pos: tok.Pos}, nil
	}

	return nil, diag.Syntax(tok.Pos.Line, tok.Pos.Column, "expected expression, got %v", describe(tok))
}

// ParseVarName parses `@ IDENT` and returns the identifier.
func (p *Parser) ParseVarName() (string, error) {
	if _, err := p.Eat(lexer.TokenAt); err != nil {
		return "", err
	}

	name, err := p.Eat(lexer.TokenIdent)
	if err != nil {
		return "", err
	}

	return name.Lexeme, nil
}

// Parenthesized parses `( expr )`.
func (p *Parser) Parenthesized() (Expr, error) {
	if _, err := p.Eat(lexer.TokenLParen); err != nil {
		return nil, err
	}

	e, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.Eat(lexer.TokenRParen); err != nil {
		return nil, err
	}

	return e, nil
}

// TakePending returns and clears the variable name of the assignment
// being parsed. ok is false if the statement is not an assignment.
func (p *Parser) TakePending() (name string, pos lexer.Pos, ok bool) {
	name, pos = p.pending, p.pendingPos
	p.pending = ""

	return name, pos, name != ""
}

// Eat consumes a token of type t or fails.
func (p *Parser) Eat(t lexer.TokenType) (lexer.Token, error) {
	if !p.Check(t) {
		return lexer.Token{}, p.expected(t)
	}

	return p.advance(), nil
}

func (p *Parser) Check(t lexer.TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) Current() lexer.Token {
	return p.current
}

func (p *Parser) Errorf(tok lexer.Token, format string, args ...interface{}) error {
	return diag.Syntax(tok.Pos.Line, tok.Pos.Column, format, args...)
}

func (p *Parser) advance() lexer.Token {
	tok := p.current
	p.current = p.scanner.NextToken()
	return tok
}

func (p *Parser) expected(t lexer.TokenType) error {
	return p.Errorf(p.current, "expected %v, got %v", t, describe(p.current))
}

func (p *Parser) unexpected() error {
	return p.Errorf(p.current, "unexpected %v", describe(p.current))
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenEOF:
		return "end of input"
	case lexer.TokenIdent, lexer.TokenString:
		return string(tok.Type) + " " + tok.Lexeme
	}

	return string(tok.Type)
}
