package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"atlang/internal/config"
	"atlang/internal/database"
)

// History lists recent builds recorded in the ledger.
func History(c *cli.Command) error {
	ctx, stop := commandContext()
	defer stop()

	cfg, _, err := config.Load("atlang.json", nil)
	if err != nil {
		return errors.Wrap(err, "config")
	}

	if v := c.String("ledger-driver"); v != "" {
		cfg.LedgerDriver = v
	}
	if v := c.String("ledger-dsn"); v != "" {
		cfg.LedgerDSN = v
	}

	if cfg.LedgerDSN == "" {
		return errors.New("no build ledger configured: set --ledger-dsn or ATLANG_LEDGER_DSN")
	}

	l, err := database.Open(ctx, cfg.LedgerDriver, cfg.LedgerDSN)
	if err != nil {
		return errors.Wrap(err, "open ledger")
	}

	defer func() {
		_ = l.Close()
	}()

	recs, err := l.Recent(ctx, c.Int("limit"))
	if err != nil {
		return errors.Wrap(err, "ledger")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "ID\tSOURCE\tSIZE\tKIND\tTARGET\tBUILT\n")

	for _, r := range recs {
		kind := "thin"
		if r.SelfContained {
			kind = "self-contained"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", short(r.ID), r.SourcePath, humanize.Bytes(uint64(r.ImageSize)), kind, r.Target, humanize.Time(r.CreatedAt))
	}

	return w.Flush()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
