package parser

import (
	"strconv"

	"atlang/internal/lexer"
)

// @var = getEnv(@NAME) or @var = getEnv("literal")
type EnvVarAssign struct {
	Var     string
	Source  string
	Literal bool // Source is the value itself, not a variable name
	Pos     lexer.Pos
}

func (*EnvVarAssign) Kind() NodeKind        { return KindEnvVarAssign }
func (s *EnvVarAssign) Position() lexer.Pos { return s.Pos }

// ScalarValue is a string or a 64-bit integer literal.
type ScalarValue struct {
	IsInt bool
	Str   string
	Int   int64
}

func (v ScalarValue) String() string {
	if v.IsInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return strconv.Quote(v.Str)
}

// @var = "text" or @var = 123
type ScalarAssign struct {
	Var   string
	Value ScalarValue
	Pos   lexer.Pos
}

func (*ScalarAssign) Kind() NodeKind        { return KindScalarAssign }
func (s *ScalarAssign) Position() lexer.Pos { return s.Pos }

// @print(expr)
type Print struct {
	Expr Expr
	Pos  lexer.Pos
}

func (*Print) Kind() NodeKind        { return KindPrint }
func (s *Print) Position() lexer.Pos { return s.Pos }

// @if(left == right) { ... } @else { ... }
type Conditional struct {
	Left  Expr
	Right Expr
	Then  []Node
	Else  []Node
	Pos   lexer.Pos
}

func (*Conditional) Kind() NodeKind        { return KindConditional }
func (s *Conditional) Position() lexer.Pos { return s.Pos }

// @exit(expr)
type Exit struct {
	Expr Expr
	Pos  lexer.Pos
}

func (*Exit) Kind() NodeKind        { return KindExit }
func (s *Exit) Position() lexer.Pos { return s.Pos }

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// @var = @getWeb(@URL) or @var = @postWeb(@URL, @BODY)
type WebRequest struct {
	Result  string
	Method  string
	URLVar  string
	BodyVar string // POST only
	Pos     lexer.Pos
}

func (*WebRequest) Kind() NodeKind        { return KindWebRequest }
func (s *WebRequest) Position() lexer.Pos { return s.Pos }

// @startServer(@ROOT, @PORT)
type StartServer struct {
	RootVar string
	PortVar string
	Pos     lexer.Pos
}

func (*StartServer) Kind() NodeKind        { return KindStartServer }
func (s *StartServer) Position() lexer.Pos { return s.Pos }
