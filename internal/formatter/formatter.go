// Package formatter prints a parsed program in canonical layout.
package formatter

import (
	"strconv"
	"strings"

	"atlang/internal/parser"
)

type Formatter struct {
	indent    int
	indentStr string
	output    strings.Builder
}

func NewFormatter() *Formatter {
	return &Formatter{
		indentStr: "    ",
	}
}

// Format renders nodes one statement per line.
// Conditionals are separated from their neighbours by a blank line.
func (f *Formatter) Format(nodes []parser.Node) string {
	f.output.Reset()
	f.indent = 0

	f.block(nodes)

	return f.output.String()
}

func (f *Formatter) block(nodes []parser.Node) {
	for i, n := range nodes {
		if i > 0 && needsBlankLine(nodes[i-1], n) {
			f.output.WriteString("\n")
		}

		f.stmt(n)
	}
}

func needsBlankLine(prev, next parser.Node) bool {
	return prev.Kind() == parser.KindConditional || next.Kind() == parser.KindConditional
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.output.WriteString(f.indentStr)
	}
}

func (f *Formatter) stmt(n parser.Node) {
	f.writeIndent()

	switch s := n.(type) {
	case *parser.EnvVarAssign:
		f.assign(s.Var)
		f.output.WriteString("@getEnv(")

		if s.Literal {
			f.str(s.Source)
		} else {
			f.variable(s.Source)
		}

		f.output.WriteString(")")

	case *parser.ScalarAssign:
		f.assign(s.Var)

		if s.Value.IsInt {
			f.output.WriteString(strconv.FormatInt(s.Value.Int, 10))
		} else {
			f.str(s.Value.Str)
		}

	case *parser.Print:
		f.output.WriteString("@print(")
		f.expr(s.Expr)
		f.output.WriteString(")")

	case *parser.Exit:
		f.output.WriteString("@exit(")
		f.expr(s.Expr)
		f.output.WriteString(")")

	case *parser.Conditional:
		f.output.WriteString("@if(")
		f.expr(s.Left)
		f.output.WriteString(" == ")
		f.expr(s.Right)
		f.output.WriteString(") ")
		f.body(s.Then)

		if s.Else != nil {
			f.output.WriteString(" @else ")
			f.body(s.Else)
		}

	case *parser.WebRequest:
		f.assign(s.Result)

		if s.Method == parser.MethodPost {
			f.output.WriteString("@postWeb(")
			f.variable(s.URLVar)
			f.output.WriteString(", ")
			f.variable(s.BodyVar)
		} else {
			f.output.WriteString("@getWeb(")
			f.variable(s.URLVar)
		}

		f.output.WriteString(")")

	case *parser.StartServer:
		f.output.WriteString("@startServer(")
		f.variable(s.RootVar)
		f.output.WriteString(", ")
		f.variable(s.PortVar)
		f.output.WriteString(")")
	}

	f.output.WriteString("\n")
}

func (f *Formatter) body(nodes []parser.Node) {
	f.output.WriteString("{\n")

	f.indent++
	f.block(nodes)
	f.indent--

	f.writeIndent()
	f.output.WriteString("}")
}

func (f *Formatter) expr(e parser.Expr) {
	switch e := e.(type) {
	case *parser.VarRef:
		f.variable(e.Name)
	case *parser.StringLit:
		f.str(e.Value)
	case *parser.NumberLit:
		f.output.WriteString(strconv.FormatInt(e.Value, 10))
	case *parser.BinaryAdd:
		f.expr(e.Left)
		f.output.WriteString(" + ")
		f.expr(e.Right)
	}
}

func (f *Formatter) assign(name string) {
	f.variable(name)
	f.output.WriteString(" = ")
}

func (f *Formatter) variable(name string) {
	f.output.WriteString("@")
	f.output.WriteString(name)
}

// str writes a string literal. Literals are raw: there are no escapes.
func (f *Formatter) str(s string) {
	f.output.WriteString(`"`)
	f.output.WriteString(s)
	f.output.WriteString(`"`)
}
