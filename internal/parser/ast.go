package parser

import "atlang/internal/lexer"

// NodeKind names an AST node variant. Emitters are looked up by it.
type NodeKind string

const (
	KindEnvVarAssign NodeKind = "EnvVarAssign"
	KindScalarAssign NodeKind = "ScalarAssign"
	KindPrint        NodeKind = "Print"
	KindConditional  NodeKind = "Conditional"
	KindExit         NodeKind = "Exit"
	KindWebRequest   NodeKind = "WebRequest"
	KindStartServer  NodeKind = "StartServer"

	KindVarRef    NodeKind = "VarRef"
	KindStringLit NodeKind = "StringLit"
	KindNumberLit NodeKind = "NumberLit"
	KindBinaryAdd NodeKind = "BinaryAdd"
)

// Node is any AST node. Nodes are not modified after parsing.
type Node interface {
	Kind() NodeKind
	Position() lexer.Pos
}

// Expr is a node producing a value.
type Expr interface {
	Node
	expr()
}

// Variable reference: @name
type VarRef struct {
	Name string
	Pos  lexer.Pos
}

func (*VarRef) Kind() NodeKind        { return KindVarRef }
func (v *VarRef) Position() lexer.Pos { return v.Pos }
func (*VarRef) expr()                 {}

// String literal: "text"
type StringLit struct {
	Value string
	Pos   lexer.Pos
}

func (*StringLit) Kind() NodeKind        { return KindStringLit }
func (s *StringLit) Position() lexer.Pos { return s.Pos }
func (*StringLit) expr()                 {}

// Number literal: 123
type NumberLit struct {
	Value int64
	Pos   lexer.Pos
}

func (*NumberLit) Kind() NodeKind        { return KindNumberLit }
func (n *NumberLit) Position() lexer.Pos { return n.Pos }
func (*NumberLit) expr()                 {}

// Addition: a + b
type BinaryAdd struct {
	Left  Expr
	Right Expr
	Pos   lexer.Pos
}

func (*BinaryAdd) Kind() NodeKind        { return KindBinaryAdd }
func (b *BinaryAdd) Position() lexer.Pos { return b.Pos }
func (*BinaryAdd) expr()                 {}

// StatementKinds lists every statement node kind.
func StatementKinds() []NodeKind {
	return []NodeKind{
		KindEnvVarAssign,
		KindScalarAssign,
		KindPrint,
		KindConditional,
		KindExit,
		KindWebRequest,
		KindStartServer,
	}
}

// ExpressionKinds lists every expression node kind.
func ExpressionKinds() []NodeKind {
	return []NodeKind{
		KindVarRef,
		KindStringLit,
		KindNumberLit,
		KindBinaryAdd,
	}
}
