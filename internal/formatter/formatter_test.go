package formatter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlang/internal/build"
	"atlang/internal/formatter"
)

func format(t *testing.T, src string) string {
	t.Helper()

	nodes, err := build.Parse(context.Background(), "main.at", src)
	require.NoError(t, err)

	return formatter.NewFormatter().Format(nodes)
}

func TestFormat(t *testing.T) {
	src := `@SERVER_ROOT_PATH="./public"   @SERVER_PORT = getEnv(@PORT)
@lit = @getEnv("x")
@n=3 @print(1+1+2)
@if(@SERVER_PORT=="") {@print("no port") @exit(1)} @else { @if(@n == 3) { @print("three") } }
@r = @getWeb(@url)
@r = @postWeb(@url @body)
@startServer(@SERVER_ROOT_PATH, @SERVER_PORT)`

	want := `@SERVER_ROOT_PATH = "./public"
@SERVER_PORT = @getEnv(@PORT)
@lit = @getEnv("x")
@n = 3
@print(1 + 1 + 2)

@if(@SERVER_PORT == "") {
    @print("no port")
    @exit(1)
} @else {
    @if(@n == 3) {
        @print("three")
    }
}

@r = @getWeb(@url)
@r = @postWeb(@url, @body)
@startServer(@SERVER_ROOT_PATH, @SERVER_PORT)
`

	got := format(t, src)
	assert.Equal(t, want, got)
	assert.Equal(t, want, format(t, got), "formatting is idempotent")
}

func TestFormatKeepsProgram(t *testing.T) {
	src := `@x = @getEnv(@X) @if(@x == "a") { @print("A") } @else { @print("B" + @x) } @exit(@x)`

	a, err := build.Compile(context.Background(), src)
	require.NoError(t, err)

	b, err := build.Compile(context.Background(), format(t, src))
	require.NoError(t, err)

	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Constants, b.Constants)
	assert.Equal(t, a.Locals, b.Locals)
}
