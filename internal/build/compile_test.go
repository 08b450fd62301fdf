package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlang/internal/bytecode"
	"atlang/internal/diag"
)

const serverProgram = `
@SERVER_ROOT_PATH = "./samples/server_files"
@SERVER_PORT = @getEnv(@TESTPORT)
@print(@SERVER_PORT)
@startServer(@SERVER_ROOT_PATH, @SERVER_PORT)
`

func TestCompileDeterministic(t *testing.T) {
	ctx := context.Background()

	for _, src := range []string{
		serverProgram,
		`@x = "a" @if(@x == "a") { @print("A") } @else { @print("B") } @exit(@x)`,
		`@r = @postWeb(@url, @body) @print(@r + "!")`,
	} {
		a, err := Compile(ctx, src)
		require.NoError(t, err)

		b, err := Compile(ctx, src)
		require.NoError(t, err)

		assert.Equal(t, a.Code, b.Code)
		assert.Equal(t, a.Constants, b.Constants)
		assert.Equal(t, a.Locals, b.Locals)
		assert.Equal(t, a.Cells, b.Cells)
		assert.Equal(t, bytecode.Disassemble(a, "a"), bytecode.Disassemble(b, "a"))
	}
}

func TestCompileAddition(t *testing.T) {
	ctx := context.Background()

	chunk, err := Compile(ctx, `@print("a" + "b")`)
	require.NoError(t, err)
	assert.Contains(t, ops(chunk), bytecode.OpConcat)
	assert.NotContains(t, ops(chunk), bytecode.OpAddInt)

	chunk, err = Compile(ctx, `@print(1 + 1)`)
	require.NoError(t, err)
	assert.Contains(t, ops(chunk), bytecode.OpAddInt)
	assert.NotContains(t, ops(chunk), bytecode.OpConcat)

	_, err = Compile(ctx, `@x = "v" @print(@x + @x + "s")`)
	require.NoError(t, err)

	for _, src := range []string{
		`@print(1 + "b")`,
		`@print("a" + 1)`,
		`@x = "v" @print(1 + @x)`,
		`@print(1 + 2 + "c")`,
	} {
		_, err = Compile(ctx, src)
		require.Error(t, err, "source: %s", src)
		assert.True(t, diag.Is(err, diag.TypeError), "%v", err)
		assert.Contains(t, err.Error(), "cannot add")
	}
}

func TestCompileErrorCarriesSource(t *testing.T) {
	_, err := CompileFile(context.Background(), "main.at", "@x = \"1\"\n@print(2 + @x)\n")
	require.Error(t, err)

	out := diag.Render(err, false)

	assert.Contains(t, out, "TypeError: cannot add number literal and variable @x")
	assert.Contains(t, out, "main.at:2:")
	assert.Contains(t, out, "  2 | @print(2 + @x)")
	assert.Contains(t, out, "^")
}

func TestCompileVariableStore(t *testing.T) {
	chunk, err := Compile(context.Background(), `
		@a = "text"
		@n = 5
		@r = @getWeb(@a)
		@m = "x"
		@m = 1
		@print(@undefined)
	`)
	require.NoError(t, err)

	assert.Equal(t, []bytecode.Local{
		{Name: "a", Type: bytecode.KindString},
		{Name: "n", Type: bytecode.KindInt},
	}, chunk.Locals)

	assert.Equal(t, []string{"r", "m", "undefined"}, chunk.Cells)
}

func TestCompileServerLoop(t *testing.T) {
	chunk, err := Compile(context.Background(), serverProgram)
	require.NoError(t, err)

	for _, op := range []bytecode.OpCode{
		bytecode.OpAbsPath, bytecode.OpListen, bytecode.OpAccept,
		bytecode.OpAdmit, bytecode.OpServe, bytecode.OpReject,
	} {
		assert.Contains(t, ops(chunk), op)
	}

	names := make([]string, len(chunk.Locals))
	for i, l := range chunk.Locals {
		names[i] = l.Name
	}

	assert.Equal(t, []string{"SERVER_ROOT_PATH", "SERVER_PORT", "$server0", "$conn1"}, names)
}

func ops(c *bytecode.Chunk) (res []bytecode.OpCode) {
	for off := 0; off < len(c.Code); {
		op := bytecode.OpCode(c.Code[off])
		res = append(res, op)
		off += 1 + op.OperandWidth()
	}

	return res
}

func TestCompileSamples(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "samples", "*.at"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		src, err := os.ReadFile(name)
		require.NoError(t, err)

		_, err = CompileFile(context.Background(), name, string(src))
		assert.NoError(t, err, name)
	}
}
