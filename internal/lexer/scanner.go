package lexer

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Scanner turns source text into tokens on demand.
// Characters it does not recognize are skipped without an error.
type Scanner struct {
	source   string
	keywords *Registry

	start   int
	current int
	line    int
	column  int
}

func NewScanner(source string, keywords *Registry) *Scanner {
	if keywords == nil {
		keywords = NewRegistry()
	}

	return &Scanner{
		source:   source,
		keywords: keywords,
		line:     1,
		column:   1,
	}
}

// ScanTokens lexes the whole input. The last token is always TokenEOF.
func (s *Scanner) ScanTokens() []Token {
	var tokens []Token

	for {
		t := s.NextToken()
		tokens = append(tokens, t)

		if t.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token. Once the input is exhausted
// it keeps returning TokenEOF.
func (s *Scanner) NextToken() Token {
	for {
		s.sanitize()

		s.start = s.current
		pos := Pos{Line: s.line, Column: s.column}

		if s.isAtEnd() {
			return Token{Type: TokenEOF, Pos: pos}
		}

		if kw, t, ok := s.keywords.match(s.source[s.current:]); ok {
			s.skip(len(kw))
			return Token{Type: t, Lexeme: kw, Pos: pos}
		}

		c := s.peek()

		if c == '=' && s.peekNext() == '=' {
			s.skip(2)
			return Token{Type: TokenDoubleEqual, Lexeme: "==", Pos: pos}
		}

		if t, ok := punctuation[c]; ok {
			s.advance()
			return Token{Type: t, Lexeme: string(c), Pos: pos}
		}

		switch {
		case c == '"':
			return s.string(pos)
		case isAlpha(c):
			return s.identifier(pos)
		case isDigit(c):
			return s.number(pos)
		}

		// unrecognized: skip one rune and keep going
		_, size := utf8.DecodeRuneInString(s.source[s.current:])
		s.skip(size)
	}
}

var punctuation = map[byte]TokenType{
	'@': TokenAt,
	'=': TokenEqual,
	'+': TokenPlus,
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
}

// string reads raw text up to the closing quote. No escapes are processed.
// An unterminated literal runs to the end of input.
func (s *Scanner) string(pos Pos) Token {
	s.advance() // opening quote

	for !s.isAtEnd() && s.peek() != '"' {
		s.advance()
	}

	value := s.source[s.start+1 : s.current]

	if !s.isAtEnd() {
		s.advance() // closing quote
	}

	return Token{Type: TokenString, Lexeme: value, Pos: pos}
}

func (s *Scanner) identifier(pos Pos) Token {
	for !s.isAtEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	return Token{Type: TokenIdent, Lexeme: s.source[s.start:s.current], Pos: pos}
}

// number reads a decimal integer. Values beyond int64 saturate.
func (s *Scanner) number(pos Pos) Token {
	for !s.isAtEnd() && isDigit(s.peek()) {
		s.advance()
	}

	text := s.source[s.start:s.current]
	n, _ := strconv.ParseInt(text, 10, 64)

	return Token{Type: TokenNumber, Lexeme: text, Number: n, Pos: pos}
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++

	if c == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}

	return c
}

func (s *Scanner) skip(n int) {
	for i := 0; i < n && !s.isAtEnd(); i++ {
		s.advance()
	}
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return '\000'
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return '\000'
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) sanitize() {
	for !s.isAtEnd() {
		r, size := utf8.DecodeRuneInString(s.source[s.current:])
		if !unicode.IsSpace(r) {
			return
		}
		s.skip(size)
	}
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
