package commands

import (
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"atlang/internal/config"
	"atlang/internal/diag"
)

// Run executes a program and exits with its exit code.
func Run(c *cli.Command) error {
	path, err := singleArg(c)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	cfg, _, err := config.Load(path, nil)
	if err != nil {
		return errors.Wrap(err, "config")
	}

	if n := c.Int("ceiling"); n > 0 {
		cfg.Ceiling = int64(n)
	}

	chunk, err := load(ctx, path)
	if err != nil {
		diag.Fprint(os.Stderr, err)
		return errors.New("cannot run %v", path)
	}

	code, err := Execute(ctx, chunk, cfg.Ceiling)
	if err != nil && ctx.Err() == nil {
		diag.Fprint(os.Stderr, err)
		os.Exit(1)
	}

	stop()
	os.Exit(code)

	return nil
}
