package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a listing of the whole chunk.
func Disassemble(c *Chunk, name string) string {
	var sb strings.Builder

	_ = Fdisassemble(&sb, c, name)

	return sb.String()
}

func Fdisassemble(w io.Writer, c *Chunk, name string) (err error) {
	p := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("== %s ==\n", name)

	for i, l := range c.Locals {
		p("local %04d %-6v %s\n", i, l.Type, l.Name)
	}

	for i, n := range c.Cells {
		p("cell  %04d %s\n", i, n)
	}

	for off := 0; off < len(c.Code); {
		var line string
		line, off = instruction(c, off)
		p("%s\n", line)
	}

	return err
}

// instruction renders the instruction at off and returns the next offset.
func instruction(c *Chunk, off int) (string, int) {
	op := OpCode(c.Code[off])

	ln := "   |"
	if off == 0 || c.Line(off) != c.Line(off-1) {
		ln = fmt.Sprintf("%4d", c.Line(off))
	}

	prefix := fmt.Sprintf("%04d %s %-18v", off, ln, op)

	if !op.Valid() {
		return fmt.Sprintf("%04d %s OP_UNKNOWN(%d)", off, ln, byte(op)), off + 1
	}

	if op.OperandWidth() == 0 {
		return strings.TrimRight(prefix, " "), off + 1
	}

	if off+3 > len(c.Code) {
		return prefix + " <truncated>", len(c.Code)
	}

	arg := int(c.ReadU16(off + 1))

	var note string

	switch op {
	case OpConstant:
		if arg < len(c.Constants) {
			note = c.Constants[arg].String()
		}
	case OpLoadLocal, OpStoreLocal:
		if arg < len(c.Locals) {
			note = c.Locals[arg].Name
		}
	case OpLoadCell, OpStoreCell:
		if arg < len(c.Cells) {
			note = c.Cells[arg]
		}
	case OpJump, OpJumpIfFalse:
		note = fmt.Sprintf("-> %04d", arg)
	}

	return strings.TrimRight(fmt.Sprintf("%s %4d %s", prefix, arg, note), " "), off + 3
}
