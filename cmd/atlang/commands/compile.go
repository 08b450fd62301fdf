package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/blake2b"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"atlang/internal/build"
	"atlang/internal/config"
	"atlang/internal/database"
	"atlang/internal/diag"
)

func Compile(c *cli.Command) (err error) {
	src, err := singleArg(c)
	if err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	cfg, _, err := config.Load(src, nil)
	if err != nil {
		return errors.Wrap(err, "config")
	}

	compileFlagsFrom(c).apply(&cfg)

	start := time.Now()

	art, id, err := compileFile(ctx, src, cfg)
	if err != nil {
		diag.Fprint(os.Stderr, err)
		return errors.New("compilation failed")
	}

	elapsed := time.Since(start)

	fmt.Printf("Compiled %s -> %s (%s) in %v\n", src, art.Path, humanize.Bytes(uint64(art.Size)), elapsed.Round(time.Microsecond))

	if len(art.RequiredComponents) != 0 {
		fmt.Printf("Requires: %v\n", art.RequiredComponents)
	}

	if cfg.LedgerDSN == "" {
		return nil
	}

	err = record(ctx, cfg, database.BuildRecord{
		ID:            id,
		SourcePath:    src,
		SourceDigest:  digestFile(src),
		ImageDigest:   art.Digest,
		ImageSize:     art.Size,
		SelfContained: art.SelfContained,
		Target:        art.Target,
		Duration:      elapsed,
	})
	if err != nil {
		tlog.SpanFromContext(ctx).Printw("ledger", "err", err)
		fmt.Fprintf(os.Stderr, "warning: build not recorded: %v\n", err)
	}

	return nil
}

// compileFlags are the command line settings of compile. Non-zero
// values override the configuration.
type compileFlags struct {
	Output        string
	SelfContained bool
	Target        string
	Stub          string
	LedgerDriver  string
	LedgerDSN     string
}

func compileFlagsFrom(c *cli.Command) compileFlags {
	return compileFlags{
		Output:        c.String("output"),
		SelfContained: c.Bool("self-contained"),
		Target:        c.String("target"),
		Stub:          c.String("stub"),
		LedgerDriver:  c.String("ledger-driver"),
		LedgerDSN:     c.String("ledger-dsn"),
	}
}

func (f compileFlags) apply(cfg *config.Config) {
	if f.Output != "" {
		cfg.Output = f.Output
	}
	if f.SelfContained {
		cfg.SelfContained = true
	}
	if f.Target != "" {
		cfg.Target = f.Target
	}
	if f.Stub != "" {
		cfg.RuntimeStub = f.Stub
	}
	if f.LedgerDriver != "" {
		cfg.LedgerDriver = f.LedgerDriver
	}
	if f.LedgerDSN != "" {
		cfg.LedgerDSN = f.LedgerDSN
	}
}

func compileFile(ctx context.Context, src string, cfg config.Config) (*build.Artifact, string, error) {
	text, err := os.ReadFile(src)
	if err != nil {
		return nil, "", errors.Wrap(err, "read source")
	}

	chunk, err := build.CompileFile(ctx, src, string(text))
	if err != nil {
		return nil, "", err
	}

	im, err := build.NewImage(chunk)
	if err != nil {
		return nil, "", err
	}

	art, err := build.Package(ctx, im, build.PackageOptions{
		Output:        cfg.OutputFor(src),
		SelfContained: cfg.SelfContained,
		Target:        cfg.Target,
		Stub:          cfg.RuntimeStub,
	})
	if err != nil {
		return nil, "", err
	}

	return art, im.Header.BuildID, nil
}

func record(ctx context.Context, cfg config.Config, r database.BuildRecord) error {
	l, err := database.Open(ctx, cfg.LedgerDriver, cfg.LedgerDSN)
	if err != nil {
		return err
	}

	defer func() {
		_ = l.Close()
	}()

	return l.Record(ctx, r)
}

func digestFile(name string) string {
	data, err := os.ReadFile(name)
	if err != nil {
		return ""
	}

	sum := blake2b.Sum256(data)

	return hex.EncodeToString(sum[:])
}
