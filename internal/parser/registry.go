package parser

import (
	"sort"

	"tlog.app/go/errors"

	"atlang/internal/lexer"
)

// StatementParser parses one construct. It is called with the current
// token being the one it was registered for.
type StatementParser func(p *Parser) (Node, error)

// Registry maps the token kind introducing a construct to its parser.
type Registry struct {
	parsers map[lexer.TokenType]StatementParser
}

func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[lexer.TokenType]StatementParser),
	}
}

// Register binds t to fn. A token kind can only have one parser.
func (r *Registry) Register(t lexer.TokenType, fn StatementParser) error {
	if fn == nil {
		return errors.New("nil parser for %v", t)
	}

	if _, ok := r.parsers[t]; ok {
		return errors.New("parser for %v already registered", t)
	}

	r.parsers[t] = fn

	return nil
}

func (r *Registry) Lookup(t lexer.TokenType) (StatementParser, bool) {
	fn, ok := r.parsers[t]
	return fn, ok
}

// TokenTypes lists the registered token kinds in sorted order.
func (r *Registry) TokenTypes() []lexer.TokenType {
	ts := make([]lexer.TokenType, 0, len(r.parsers))
	for t := range r.parsers {
		ts = append(ts, t)
	}

	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	return ts
}
