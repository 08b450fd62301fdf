package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(t *testing.T) *Chunk {
	t.Helper()

	c := NewChunk()

	k, err := c.AddConstant(Str("hello"))
	require.NoError(t, err)

	n, err := c.AddConstant(Int(-7))
	require.NoError(t, err)

	again, err := c.AddConstant(Str("hello"))
	require.NoError(t, err)
	assert.Equal(t, k, again)

	x, err := c.AddLocal("x", KindString)
	require.NoError(t, err)

	cell, err := c.AddCell("r")
	require.NoError(t, err)

	c.WriteOp(OpConstant, 1)
	c.WriteU16(uint16(k), 1)
	c.WriteOp(OpStoreLocal, 1)
	c.WriteU16(uint16(x), 1)
	c.WriteOp(OpConstant, 2)
	c.WriteU16(uint16(n), 2)
	c.WriteOp(OpStoreCell, 2)
	c.WriteU16(uint16(cell), 2)
	c.WriteOp(OpJump, 3)
	c.WriteU16(0x0010, 3)
	c.WriteOp(OpReturn, 3)

	return c
}

func TestChunkOperands(t *testing.T) {
	c := testChunk(t)

	assert.Equal(t, []Value{Str("hello"), Int(-7)}, c.Constants)
	assert.Len(t, c.Lines, len(c.Code))
	assert.Equal(t, uint16(0x10), c.ReadU16(13))

	c.PatchU16(13, 0x0102)
	assert.Equal(t, []byte{byte(OpJump), 1, 2}, c.Code[12:15])

	assert.Equal(t, 3, c.Line(12))
	assert.Equal(t, 0, c.Line(100))
}

func TestMarshalRoundTrip(t *testing.T) {
	c := testChunk(t)
	h := Header{Format: FormatVersion, Toolchain: "v0.0.1", BuildID: "build-1"}

	data, err := Marshal(h, c)
	require.NoError(t, err)
	assert.Equal(t, Magic, string(data[:4]))

	h2, c2, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, h, h2)
	assert.Equal(t, c.Code, c2.Code)
	assert.Equal(t, c.Constants, c2.Constants)
	assert.Equal(t, c.Locals, c2.Locals)
	assert.Equal(t, c.Cells, c2.Cells)
	assert.Equal(t, c.Lines, c2.Lines)
}

func TestUnmarshalErrors(t *testing.T) {
	_, _, err := Unmarshal([]byte("ELF\x7f-------"))
	assert.Equal(t, ErrBadMagic, err)

	data, err := Marshal(Header{Format: FormatVersion, Toolchain: "v0.0.1"}, testChunk(t))
	require.NoError(t, err)

	for _, n := range []int{2, 10, len(data) / 2, len(data) - 1} {
		_, _, err = Unmarshal(data[:n])
		assert.Error(t, err, "truncated to %d", n)
	}

	future := append([]byte{}, data...)
	future[4] = FormatVersion + 1

	_, _, err = Unmarshal(future)
	assert.ErrorContains(t, err, "unsupported image format")
}

func TestMarshalRejectsHandles(t *testing.T) {
	c := NewChunk()
	c.Constants = append(c.Constants, Handle(struct{}{}))

	_, err := Marshal(Header{}, c)
	assert.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	c := testChunk(t)

	text := Disassemble(c, "main")

	assert.Contains(t, text, "== main ==\n")
	assert.Contains(t, text, "local 0000 string x\n")
	assert.Contains(t, text, "cell  0000 r\n")
	assert.Contains(t, text, `OP_CONSTANT`)
	assert.Contains(t, text, `"hello"`)
	assert.Contains(t, text, "-> 0016")
	assert.Contains(t, text, "OP_RETURN")

	c.Code = append(c.Code, byte(OpLoadLocal))
	assert.Contains(t, Disassemble(c, "cut"), "<truncated>")

	c.Code = append(c.Code[:len(c.Code)-1], 0xee)
	assert.Contains(t, Disassemble(c, "bad"), "OP_UNKNOWN(238)")
}

func TestValueConversions(t *testing.T) {
	n, ok := Str(" 42\n").AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = Str("4x").AsInt()
	assert.False(t, ok)

	_, ok = Value{}.AsInt()
	assert.False(t, ok)

	assert.Equal(t, "-3", Int(-3).AsString())
	assert.Equal(t, "", Value{}.AsString())
	assert.Equal(t, "", Handle(1).AsString())

	assert.True(t, Bool(true).Equal(Int(1)))
	assert.False(t, Str("1").Equal(Int(1)))
	assert.False(t, Str("").Truthy())
	assert.True(t, Str("0").Truthy())
}

func TestOpcodeTable(t *testing.T) {
	assert.Equal(t, OpCode(0), OpConstant)
	assert.Equal(t, OpCode(25), OpReturn)
	assert.Equal(t, "OP_HTTP_GET", OpHTTPGet.String())
	assert.Equal(t, 2, OpJumpIfFalse.OperandWidth())
	assert.Equal(t, 0, OpExit.OperandWidth())
	assert.False(t, OpCode(200).Valid())
	assert.Equal(t, "OP_UNKNOWN", OpCode(200).String())
}
