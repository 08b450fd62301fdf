package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueKind byte

const (
	KindNone ValueKind = iota
	KindString
	KindInt
	KindHandle // runtime-only: listeners and connections
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindHandle:
		return "handle"
	}

	return fmt.Sprintf("kind(%d)", byte(k))
}

// Value is the tagged union every stack slot, local and cell holds.
type Value struct {
	Kind   ValueKind
	Str    string
	Int    int64
	Handle interface{}
}

func Str(s string) Value         { return Value{Kind: KindString, Str: s} }
func Int(n int64) Value          { return Value{Kind: KindInt, Int: n} }
func Bool(b bool) Value          { return Int(boolInt(b)) }
func Handle(h interface{}) Value { return Value{Kind: KindHandle, Handle: h} }

// AsString renders v as program text. None and handles are empty.
func (v Value) AsString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	}

	return ""
}

// AsInt interprets v as an integer. Strings are trimmed and parsed.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, false
		}

		return n, true
	}

	return 0, false
}

func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.Int != 0
	case KindString:
		return v.Str != ""
	case KindHandle:
		return v.Handle != nil
	}

	return false
}

func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}

	switch v.Kind {
	case KindString:
		return v.Str == w.Str
	case KindInt:
		return v.Int == w.Int
	case KindHandle:
		return v.Handle == w.Handle
	}

	return true
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindHandle:
		return fmt.Sprintf("<handle %T>", v.Handle)
	}

	return "<none>"
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
