package lexer

import (
	"sort"

	"tlog.app/go/errors"
)

// Registry maps literal keyword spellings to token types.
// Every statement module contributes the spellings of the keywords it owns.
// It is filled once before lexing starts and only read afterwards.
type Registry struct {
	keywords map[string]TokenType
	ordered  []string // longest spelling first
}

func NewRegistry() *Registry {
	return &Registry{
		keywords: make(map[string]TokenType),
	}
}

// Register adds a keyword spelling. Registering the same spelling twice
// for a different token type is an error.
func (r *Registry) Register(spelling string, t TokenType) error {
	if spelling == "" {
		return errors.New("empty keyword for %v", t)
	}

	if prev, ok := r.keywords[spelling]; ok {
		if prev != t {
			return errors.New("keyword %q registered for both %v and %v", spelling, prev, t)
		}

		return nil
	}

	r.keywords[spelling] = t
	r.ordered = append(r.ordered, spelling)

	sort.Slice(r.ordered, func(i, j int) bool {
		a, b := r.ordered[i], r.ordered[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return nil
}

// Keywords returns a copy of the spelling to token type table.
func (r *Registry) Keywords() map[string]TokenType {
	m := make(map[string]TokenType, len(r.keywords))
	for k, v := range r.keywords {
		m[k] = v
	}
	return m
}

// Lookup reports the token type registered for the exact spelling.
func (r *Registry) Lookup(spelling string) (TokenType, bool) {
	t, ok := r.keywords[spelling]
	return t, ok
}

// match finds the longest registered spelling that prefixes src.
func (r *Registry) match(src string) (string, TokenType, bool) {
	for _, kw := range r.ordered {
		if len(kw) <= len(src) && src[:len(kw)] == kw {
			return kw, r.keywords[kw], true
		}
	}

	return "", "", false
}
