package bytecode

import (
	"encoding/binary"

	"tlog.app/go/errors"
)

// Local is a typed storage slot. Type is KindString, KindInt or KindHandle.
type Local struct {
	Name string
	Type ValueKind
}

// Chunk is a complete program: one entry point at offset 0.
type Chunk struct {
	Code      []byte
	Constants []Value
	Locals    []Local
	Cells     []string // names of dynamically typed cells
	Lines     []int    // source line of every byte in Code
}

func NewChunk() *Chunk {
	return &Chunk{}
}

func (c *Chunk) WriteOp(op OpCode, line int) {
	c.writeByte(byte(op), line)
}

func (c *Chunk) writeByte(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

func (c *Chunk) WriteU16(v uint16, line int) {
	c.writeByte(byte(v>>8), line)
	c.writeByte(byte(v), line)
}

// PatchU16 overwrites the two operand bytes at offset.
func (c *Chunk) PatchU16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:], v)
}

func (c *Chunk) ReadU16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// AddConstant returns the index of v in the pool, adding it if new.
func (c *Chunk) AddConstant(v Value) (int, error) {
	for i, k := range c.Constants {
		if k.Equal(v) {
			return i, nil
		}
	}

	if len(c.Constants) > 0xffff {
		return 0, errors.New("too many constants")
	}

	c.Constants = append(c.Constants, v)

	return len(c.Constants) - 1, nil
}

// AddLocal declares a typed slot and returns its index.
func (c *Chunk) AddLocal(name string, t ValueKind) (int, error) {
	if len(c.Locals) > 0xffff {
		return 0, errors.New("too many locals")
	}

	c.Locals = append(c.Locals, Local{Name: name, Type: t})

	return len(c.Locals) - 1, nil
}

// AddCell returns the index of the named cell, adding it if new.
func (c *Chunk) AddCell(name string) (int, error) {
	for i, n := range c.Cells {
		if n == name {
			return i, nil
		}
	}

	if len(c.Cells) > 0xffff {
		return 0, errors.New("too many cells")
	}

	c.Cells = append(c.Cells, name)

	return len(c.Cells) - 1, nil
}

func (c *Chunk) Line(offset int) int {
	if offset >= 0 && offset < len(c.Lines) {
		return c.Lines[offset]
	}

	return 0
}
