package lexer

import "fmt"

type TokenType string

const (
	// Keywords. Spellings are contributed by statement modules through a Registry.
	TokenIf          TokenType = "IF"
	TokenElse        TokenType = "ELSE"
	TokenPrint       TokenType = "PRINT"
	TokenExit        TokenType = "EXIT"
	TokenGetEnv      TokenType = "GETENV"
	TokenGetWeb      TokenType = "GETWEB"
	TokenPostWeb     TokenType = "POSTWEB"
	TokenStartServer TokenType = "STARTSERVER"

	// Literals
	TokenIdent  TokenType = "IDENT"
	TokenString TokenType = "STRING"
	TokenNumber TokenType = "NUMBER"

	// Symbols
	TokenAt          TokenType = "AT"
	TokenEqual       TokenType = "EQUAL"
	TokenDoubleEqual TokenType = "EQEQ"
	TokenPlus        TokenType = "PLUS"
	TokenLParen      TokenType = "LPAREN"
	TokenRParen      TokenType = "RPAREN"
	TokenLBrace      TokenType = "LBRACE"
	TokenRBrace      TokenType = "RBRACE"

	TokenEOF TokenType = "EOF"
)

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token carries either text (Lexeme) or, for TokenNumber, a 64-bit integer.
type Token struct {
	Type   TokenType
	Lexeme string
	Number int64
	Pos    Pos
}

func (t Token) String() string {
	if t.Type == TokenNumber {
		return fmt.Sprintf("[%s] %d", t.Type, t.Number)
	}
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}
