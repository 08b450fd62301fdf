package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nikand.dev/go/cli"
	"tlog.app/go/tlog"

	"atlang/cmd/atlang/commands"
	"atlang/internal/build"
	"atlang/internal/diag"
)

func main() {
	// a self-contained image runs its program instead of the command line
	if im, ok, err := build.Embedded(); err != nil {
		diag.Fprint(os.Stderr, err)
		os.Exit(1)
	} else if ok {
		os.Exit(runEmbedded(im))
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile a source file into an image",
		Action:      commands.Compile,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output image path"),
			cli.NewFlag("self-contained", false, "bundle the runtime into the image"),
			cli.NewFlag("target", "", "target platform as GOOS/GOARCH"),
			cli.NewFlag("stub", "", "runtime executable for the target platform"),
			cli.NewFlag("ledger-driver", "", "build ledger database driver"),
			cli.NewFlag("ledger-dsn", "", "build ledger data source, empty disables the ledger"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "run a source file or an image",
		Action:      commands.Run,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("ceiling", 0, "requests an embedded server processes at once"),
		},
	}

	disasmCmd := &cli.Command{
		Name:        "disasm",
		Description: "print the instructions of a source file or an image",
		Action:      commands.Disasm,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print the syntax tree of a source file",
		Action:      commands.Parse,
		Args:        cli.Args{},
	}

	tokensCmd := &cli.Command{
		Name:        "tokens",
		Description: "print the tokens of a source file",
		Action:      commands.Tokens,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print source files in canonical layout",
		Action:      commands.Format,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("write,w", false, "rewrite the files in place"),
		},
	}

	historyCmd := &cli.Command{
		Name:        "history",
		Description: "list recent builds from the build ledger",
		Action:      commands.History,
		Flags: []*cli.Flag{
			cli.NewFlag("limit,n", 10, "number of builds"),
			cli.NewFlag("ledger-driver", "", "build ledger database driver"),
			cli.NewFlag("ledger-dsn", "", "build ledger data source"),
		},
	}

	initCmd := &cli.Command{
		Name:        "init",
		Description: "create a project with a manifest and a sample program",
		Action:      commands.Init,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "atlang",
		Description: "atlang compiles @ scripts into runnable images",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", false, "log compiler stages"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			compileCmd,
			runCmd,
			disasmCmd,
			parseCmd,
			tokensCmd,
			fmtCmd,
			historyCmd,
			initCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	commands.SetupLogging(c.Bool("verbose"))
	return nil
}

func runEmbedded(im *build.Image) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	code, err := commands.Execute(ctx, im.Chunk, 0)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	return code
}
