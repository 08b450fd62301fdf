// Package commands implements the atlang command line.
package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"atlang/internal/build"
	"atlang/internal/bytecode"
	"atlang/internal/vm"
)

// SetupLogging sends compiler logs to stderr when verbose and drops them otherwise.
func SetupLogging(verbose bool) {
	if verbose {
		return
	}

	tlog.DefaultLogger = tlog.New(io.Discard)
}

// Execute runs a chunk in this process with the real environment.
func Execute(ctx context.Context, chunk *bytecode.Chunk, ceiling int64) (int, error) {
	m := vm.New(chunk, vm.Options{
		Stdout:  os.Stdout,
		Getenv:  os.LookupEnv,
		Ceiling: ceiling,
	})

	return m.Run(ctx)
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	return ctx, stop
}

func singleArg(c *cli.Command) (string, error) {
	if len(c.Args) != 1 {
		return "", errors.New("usage: atlang %v <file>", c.Name)
	}

	return c.Args[0], nil
}

// load compiles a source file or reads an image, whichever path names.
func load(ctx context.Context, path string) (*bytecode.Chunk, error) {
	if isImage(path) {
		im, err := build.ReadImageFile(path)
		if err != nil {
			return nil, err
		}

		return im.Chunk, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read source")
	}

	return build.CompileFile(ctx, path, string(src))
}

func isImage(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".atb") {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}

	defer func() {
		_ = f.Close()
	}()

	magic := make([]byte, len(bytecode.Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}

	return string(magic) == bytecode.Magic
}
