package build

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// CopyRetries and CopyInitialInterval bound CopyWithRetries.
var (
	CopyRetries         uint64 = 10
	CopyInitialInterval        = 100 * time.Millisecond
)

// CopyWithRetries copies src to dst, retrying failed attempts with
// exponential backoff and jitter. The last failure is returned.
func CopyWithRetries(ctx context.Context, src, dst string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = CopyInitialInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	attempt := 0

	op := func() error {
		attempt++

		err := copyFile(src, dst)
		if os.IsNotExist(err) {
			return backoff.Permanent(err)
		}

		if err != nil {
			tlog.SpanFromContext(ctx).Printw("copy failed", "src", src, "dst", dst, "attempt", attempt, "err", err)
		}

		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, CopyRetries), ctx))
	if err != nil {
		return errors.Wrap(err, "copy %v after %d attempts", src, attempt)
	}

	return nil
}

func copyFile(src, dst string) (err error) {
	r, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() {
		_ = r.Close()
	}()

	w, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	defer func() {
		e := w.Close()
		if err == nil {
			err = e
		}
	}()

	if _, err = io.Copy(w, r); err != nil {
		return err
	}

	return w.Sync()
}
