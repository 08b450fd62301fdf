// Package diag holds compile-time diagnostics with source positions.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Kind classifies a diagnostic.
type Kind string

const (
	SyntaxError  Kind = "SyntaxError"
	TypeError    Kind = "TypeError"
	ImageError   Kind = "ImageError"
	RuntimeError Kind = "RuntimeError"
)

// Location is a position in a source file. Line and Column are 1-based;
// zero means unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<source>"
	}

	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// Error is a fatal compile diagnostic.
type Error struct {
	Kind     Kind
	Message  string
	Location Location
	Source   string // the offending source line
}

func (e *Error) Error() string {
	if e.Location.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("%s: %s at %d:%d", e.Kind, e.Message, e.Location.Line, e.Location.Column)
}

func Syntax(line, column int, format string, args ...interface{}) *Error {
	return newError(SyntaxError, line, column, format, args...)
}

func Type(line, column int, format string, args ...interface{}) *Error {
	return newError(TypeError, line, column, format, args...)
}

func Image(format string, args ...interface{}) *Error {
	return newError(ImageError, 0, 0, format, args...)
}

func Runtime(line int, format string, args ...interface{}) *Error {
	return newError(RuntimeError, line, 0, format, args...)
}

func newError(kind Kind, line, column int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: Location{Line: line, Column: column},
	}
}

// WithSource attaches the file name and the offending line of src.
func (e *Error) WithSource(file, src string) *Error {
	e.Location.File = file

	if e.Location.Line > 0 {
		lines := strings.Split(src, "\n")
		if e.Location.Line <= len(lines) {
			e.Source = strings.TrimRight(lines[e.Location.Line-1], "\r")
		}
	}

	return e
}

// Is reports whether err carries a diagnostic of the given kind.
func Is(err error, kind Kind) bool {
	var d *Error
	if !errors.As(err, &d) {
		return false
	}

	return d.Kind == kind
}

// Render formats err the way the command line prints it: kind, message,
// location and the source line with a caret under the column.
func Render(err error, color bool) string {
	var d *Error
	if !errors.As(err, &d) {
		return fmt.Sprintf("error: %v\n", err)
	}

	var sb strings.Builder

	kind := string(d.Kind)
	if color {
		kind = "\x1b[1;31m" + kind + "\x1b[0m"
	}

	fmt.Fprintf(&sb, "%s: %s\n", kind, d.Message)

	if d.Location.Line == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "  at %v\n", d.Location)

	if d.Source == "" {
		return sb.String()
	}

	gutter := fmt.Sprintf("  %d | ", d.Location.Line)
	fmt.Fprintf(&sb, "\n%s%s\n", gutter, d.Source)

	sb.WriteString(strings.Repeat(" ", len(gutter)))
	if d.Location.Column > 0 {
		sb.WriteString(strings.Repeat(" ", d.Location.Column-1))
	}

	if color {
		sb.WriteString("\x1b[1;32m^\x1b[0m\n")
	} else {
		sb.WriteString("^\n")
	}

	return sb.String()
}

// Fprint writes Render(err) to w, colored only if w is a terminal.
func Fprint(w io.Writer, err error) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}

	_, _ = io.WriteString(w, Render(err, color))
}

// Attach adds the file name and source line to err if it is a diagnostic.
func Attach(err error, file, src string) error {
	var d *Error
	if errors.As(err, &d) {
		d.WithSource(file, src)
	}

	return err
}
