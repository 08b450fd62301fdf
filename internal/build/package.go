package build

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rogpeppe/go-internal/renameio"
	"golang.org/x/crypto/blake2b"
	"tlog.app/go/tlog"

	"atlang/internal/diag"
)

type (
	// PackageOptions says what to produce from an image.
	PackageOptions struct {
		Output        string
		SelfContained bool
		Target        string // GOOS/GOARCH, host if empty
		Stub          string // runtime executable for the target
	}

	// Artifact is a written image.
	Artifact struct {
		Path               string
		Size               int64
		Digest             string // blake2b-256 of the payload
		SelfContained      bool
		Target             string
		RequiredComponents []string
	}
)

// HostTarget is the GOOS/GOARCH pair of the running toolchain.
func HostTarget() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Package writes im to opts.Output. A thin image is the payload alone and
// needs the runtime installed. A self-contained image is the runtime
// executable with the payload and a trailer appended.
func Package(ctx context.Context, im *Image, opts PackageOptions) (_ *Artifact, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "package", "output", opts.Output, "self_contained", opts.SelfContained)
	defer tr.Finish("err", &err)

	if opts.Output == "" {
		return nil, diag.Image("no output path")
	}

	target := opts.Target
	if target == "" {
		target = HostTarget()
	}

	payload := im.Bytes()
	sum := blake2b.Sum256(payload)

	a := &Artifact{
		Path:          opts.Output,
		Digest:        hex.EncodeToString(sum[:]),
		SelfContained: opts.SelfContained,
		Target:        target,
	}

	if !opts.SelfContained {
		a.RequiredComponents = im.RequiredComponents()
		a.Size = int64(len(payload))

		err = writeAtomic(opts.Output, bytes.NewReader(payload), 0o644)
		if err != nil {
			return nil, diag.Image("write %v: %v", opts.Output, err)
		}

		return a, nil
	}

	stub := opts.Stub
	if stub == "" {
		if target != HostTarget() {
			return nil, diag.Image("self-contained build for %v needs a runtime stub for that target", target)
		}

		stub, err = os.Executable()
		if err != nil {
			return nil, diag.Image("locate runtime: %v", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(opts.Output), ".atlang-stub-*")
	if err != nil {
		return nil, diag.Image("temp file: %v", err)
	}

	_ = tmp.Close()

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err = CopyWithRetries(ctx, stub, tmp.Name()); err != nil {
		return nil, diag.Image("copy runtime %v: %v", stub, err)
	}

	tail := makeTrailer(payload)

	f, err := os.Open(tmp.Name())
	if err != nil {
		return nil, diag.Image("open runtime copy: %v", err)
	}

	defer func() {
		_ = f.Close()
	}()

	inf, err := f.Stat()
	if err != nil {
		return nil, diag.Image("stat runtime copy: %v", err)
	}

	r := io.MultiReader(f, bytes.NewReader(payload), bytes.NewReader(tail))

	err = writeAtomic(opts.Output, r, 0o755)
	if err != nil {
		return nil, diag.Image("write %v: %v", opts.Output, err)
	}

	a.Size = inf.Size() + int64(len(payload)) + int64(len(tail))

	tr.Printw("packaged", "stub", stub, "size", a.Size, "target", target)

	return a, nil
}

// writeAtomic replaces name with the contents of r. The file gets mode perm.
func writeAtomic(name string, r io.Reader, perm os.FileMode) error {
	if err := renameio.WriteToFile(name, r); err != nil {
		return err
	}

	return os.Chmod(name, perm)
}
