package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"tlog.app/go/errors"
)

func TestRender(t *testing.T) {
	src := "@x = 1\n@print(@x + \"a\")\n"

	err := Attach(Type(2, 8, "cannot add %v and %v", "variable @x", "string literal"), "main.at", src)

	assert.Equal(t, "TypeError: cannot add variable @x and string literal at 2:8", err.Error())

	assert.Equal(t, "TypeError: cannot add variable @x and string literal\n"+
		"  at main.at:2:8\n"+
		"\n"+
		"  2 | @print(@x + \"a\")\n"+
		"             ^\n", Render(err, false))

	assert.Contains(t, Render(err, true), "\x1b[1;31mTypeError\x1b[0m")
}

func TestRenderWithoutLocation(t *testing.T) {
	assert.Equal(t, "ImageError: bad magic\n", Render(Image("bad magic"), false))
	assert.Equal(t, "error: plain\n", Render(errors.New("plain"), false))
}

func TestIs(t *testing.T) {
	err := errors.Wrap(Syntax(1, 1, "unexpected %v", "RPAREN"), "parse")

	assert.True(t, Is(err, SyntaxError))
	assert.False(t, Is(err, TypeError))
	assert.False(t, Is(errors.New("x"), SyntaxError))
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer

	Fprint(&buf, Runtime(3, "OP_HTTP_GET: refused").WithSource("", "a\nb\n@r = @getWeb(@u)"))

	assert.Equal(t, "RuntimeError: OP_HTTP_GET: refused\n"+
		"  at <source>:3:0\n"+
		"\n"+
		"  3 | @r = @getWeb(@u)\n"+
		"      ^\n", buf.String())
}
