// Package build turns source text into program images.
package build

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"atlang/internal/bytecode"
	"atlang/internal/compiler"
	"atlang/internal/diag"
	"atlang/internal/lexer"
	"atlang/internal/parser"
	"atlang/internal/statements"
)

// Compile translates source into a chunk.
func Compile(ctx context.Context, source string) (*bytecode.Chunk, error) {
	return CompileFile(ctx, "", source)
}

// CompileFile is Compile with a file name for diagnostics.
func CompileFile(ctx context.Context, file, source string) (_ *bytecode.Chunk, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "file", file, "size", len(source))
	defer tr.Finish("err", &err)

	regs, err := statements.New()
	if err != nil {
		return nil, errors.Wrap(err, "registries")
	}

	nodes, err := parse(regs, source)
	if err != nil {
		return nil, diag.Attach(err, file, source)
	}

	tr.Printw("parsed", "statements", len(nodes))

	chunk, err := compiler.NewGenerator(regs.Emitters).Generate(ctx, nodes)
	if err != nil {
		return nil, diag.Attach(err, file, source)
	}

	return chunk, nil
}

// Parse returns the program tree of source.
func Parse(ctx context.Context, file, source string) ([]parser.Node, error) {
	regs, err := statements.New()
	if err != nil {
		return nil, errors.Wrap(err, "registries")
	}

	nodes, err := parse(regs, source)
	if err != nil {
		return nil, diag.Attach(err, file, source)
	}

	tlog.SpanFromContext(ctx).Printw("parsed", "file", file, "statements", len(nodes))

	return nodes, nil
}

// Tokens lexes source with the language keywords.
func Tokens(source string) ([]lexer.Token, error) {
	regs, err := statements.New()
	if err != nil {
		return nil, errors.Wrap(err, "registries")
	}

	return lexer.NewScanner(source, regs.Tokens).ScanTokens(), nil
}

func parse(regs *statements.Registries, source string) ([]parser.Node, error) {
	s := lexer.NewScanner(source, regs.Tokens)
	p := parser.NewParser(s, regs.Parsers)

	return p.ParseProgram()
}
