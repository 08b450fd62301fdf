package commands

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/rogpeppe/go-internal/renameio"
	"golang.org/x/sync/errgroup"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"atlang/internal/build"
	"atlang/internal/diag"
	"atlang/internal/formatter"
)

// Format prints source files in canonical layout, or rewrites them with --write.
func Format(c *cli.Command) error {
	if len(c.Args) == 0 {
		return errors.New("usage: atlang fmt [--write] <file>...")
	}

	ctx, stop := commandContext()
	defer stop()

	return formatFiles(ctx, os.Stdout, os.Stderr, c.Args, c.Bool("write"))
}

// formatFiles formats paths concurrently. Output and diagnostics are
// written in argument order.
func formatFiles(ctx context.Context, stdout, stderr io.Writer, paths []string, write bool) error {
	outs := make([]string, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		i, path := i, path

		g.Go(func() error {
			outs[i], errs[i] = formatFile(ctx, path, write)
			return nil
		})
	}

	_ = g.Wait()

	failed := 0

	for i := range paths {
		if errs[i] != nil {
			diag.Fprint(stderr, errs[i])
			failed++

			continue
		}

		if !write {
			if _, err := io.WriteString(stdout, outs[i]); err != nil {
				return errors.Wrap(err, "write output")
			}
		}
	}

	if failed != 0 {
		return errors.New("%d of %d files not formatted", failed, len(paths))
	}

	return nil
}

// formatFile returns the formatted source of path. With write set the
// file is replaced instead, keeping its mode.
func formatFile(ctx context.Context, path string, write bool) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read source")
	}

	nodes, err := build.Parse(ctx, path, string(src))
	if err != nil {
		return "", err
	}

	out := formatter.NewFormatter().Format(nodes)

	if !write || out == string(src) {
		return out, nil
	}

	inf, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "stat source")
	}

	if err = renameio.WriteFile(path, []byte(out)); err != nil {
		return "", errors.Wrap(err, "write %v", path)
	}

	if err = os.Chmod(path, inf.Mode().Perm()); err != nil {
		return "", errors.Wrap(err, "chmod %v", path)
	}

	return out, nil
}
