package commands

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"atlang/internal/build"
	"atlang/internal/bytecode"
	"atlang/internal/diag"
)

func Disasm(c *cli.Command) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	chunk, err := load(ctx, path)
	if err != nil {
		diag.Fprint(os.Stderr, err)
		return errors.New("cannot load %v", path)
	}

	return bytecode.Fdisassemble(os.Stdout, chunk, path)
}

func Parse(c *cli.Command) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read source")
	}

	nodes, err := build.Parse(ctx, path, string(src))
	if err != nil {
		diag.Fprint(os.Stderr, err)
		return errors.New("cannot parse %v", path)
	}

	for _, n := range nodes {
		fmt.Printf("%# v\n", pretty.Formatter(n))
	}

	return nil
}

func Tokens(c *cli.Command) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read source")
	}

	toks, err := build.Tokens(string(src))
	if err != nil {
		return err
	}

	for _, t := range toks {
		fmt.Printf("%-6v %v\n", t.Pos, t)
	}

	return nil
}
