package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"

	"tlog.app/go/errors"
)

const (
	Magic         = "ATLG"
	FormatVersion = 1
)

// Header identifies the toolchain that produced a serialized chunk.
type Header struct {
	Format    uint32
	Toolchain string // semver, e.g. v0.0.1
	BuildID   string
}

const (
	tagString byte = 1
	tagInt    byte = 2
)

var ErrBadMagic = errors.New("not an atlang image")

// Marshal encodes the chunk with its header.
func Marshal(h Header, c *Chunk) ([]byte, error) {
	var buf bytes.Buffer

	e := encoder{w: &buf}

	e.raw([]byte(Magic))
	e.u32(FormatVersion)
	e.str(h.Toolchain)
	e.str(h.BuildID)

	e.u32(uint32(len(c.Code)))
	e.raw(c.Code)

	e.u32(uint32(len(c.Constants)))
	for i, k := range c.Constants {
		switch k.Kind {
		case KindString:
			e.u8(tagString)
			e.str(k.Str)
		case KindInt:
			e.u8(tagInt)
			e.i64(k.Int)
		default:
			return nil, errors.New("constant %d: unsupported kind %v", i, k.Kind)
		}
	}

	e.u32(uint32(len(c.Locals)))
	for _, l := range c.Locals {
		e.str(l.Name)
		e.u8(byte(l.Type))
	}

	e.u32(uint32(len(c.Cells)))
	for _, n := range c.Cells {
		e.str(n)
	}

	e.u32(uint32(len(c.Lines)))
	for _, l := range c.Lines {
		e.u32(uint32(l))
	}

	if e.err != nil {
		return nil, errors.Wrap(e.err, "encode")
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes data produced by Marshal.
func Unmarshal(data []byte) (h Header, c *Chunk, err error) {
	d := decoder{r: bytes.NewReader(data)}

	if magic := d.raw(len(Magic)); d.err == nil && string(magic) != Magic {
		return h, nil, ErrBadMagic
	}

	h.Format = d.u32()
	if d.err == nil && h.Format > FormatVersion {
		return h, nil, errors.New("unsupported image format: %d", h.Format)
	}

	h.Toolchain = d.str()
	h.BuildID = d.str()

	c = NewChunk()

	c.Code = d.raw(int(d.u32()))

	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		switch tag := d.u8(); tag {
		case tagString:
			c.Constants = append(c.Constants, Str(d.str()))
		case tagInt:
			c.Constants = append(c.Constants, Int(d.i64()))
		default:
			if d.err == nil {
				d.err = errors.New("constant %d: unknown tag %d", i, tag)
			}
		}
	}

	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		c.Locals = append(c.Locals, Local{Name: d.str(), Type: ValueKind(d.u8())})
	}

	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		c.Cells = append(c.Cells, d.str())
	}

	n = d.count()
	for i := 0; i < n && d.err == nil; i++ {
		c.Lines = append(c.Lines, int(d.u32()))
	}

	if d.err != nil {
		return h, nil, errors.Wrap(d.err, "decode")
	}

	return h, c, nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) raw(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) u8(b byte) { e.raw([]byte{b}) }

func (e *encoder) u32(v uint32) {
	e.raw(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *encoder) i64(v int64) {
	e.raw(binary.LittleEndian.AppendUint64(nil, uint64(v)))
}

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.raw([]byte(s))
}

type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) raw(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n < 0 || n > d.r.Len() {
		d.err = io.ErrUnexpectedEOF
		return nil
	}

	b := make([]byte, n)
	_, d.err = io.ReadFull(d.r, b)

	return b
}

func (d *decoder) u8() byte {
	b := d.raw(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (d *decoder) u32() uint32 {
	b := d.raw(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) i64() int64 {
	b := d.raw(8)
	if b == nil {
		return 0
	}

	return int64(binary.LittleEndian.Uint64(b))
}

func (d *decoder) str() string {
	return string(d.raw(int(d.u32())))
}

// count reads a length prefix and bounds it by the remaining input.
func (d *decoder) count() int {
	n := int(d.u32())
	if d.err == nil && n > d.r.Len() {
		d.err = io.ErrUnexpectedEOF
		return 0
	}

	return n
}
