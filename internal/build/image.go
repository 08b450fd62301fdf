package build

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"
	"tlog.app/go/errors"

	"atlang/internal/bytecode"
	"atlang/internal/diag"
)

// Version is the toolchain version stamped into every image.
const Version = "v0.0.1"

// RuntimeComponent is what a thin image needs installed to run.
const RuntimeComponent = "atlang-runtime"

// Image is a compiled program with exactly one entry point.
type Image struct {
	Header bytecode.Header
	Chunk  *bytecode.Chunk

	payload []byte
}

// NewImage stamps chunk with the toolchain version and a fresh build id.
func NewImage(chunk *bytecode.Chunk) (*Image, error) {
	h := bytecode.Header{
		Format:    bytecode.FormatVersion,
		Toolchain: Version,
		BuildID:   uuid.NewString(),
	}

	payload, err := bytecode.Marshal(h, chunk)
	if err != nil {
		return nil, diag.Image("serialize: %v", err)
	}

	return &Image{Header: h, Chunk: chunk, payload: payload}, nil
}

// Bytes returns the unbundled image.
func (im *Image) Bytes() []byte {
	return im.payload
}

// RequiredComponents lists what must be installed to run the thin image.
func (im *Image) RequiredComponents() []string {
	return []string{RuntimeComponent + "@" + im.Header.Toolchain}
}

// LoadImage decodes an unbundled image and checks that this toolchain
// can run it.
func LoadImage(data []byte) (*Image, error) {
	h, chunk, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, diag.Image("%v", err)
	}

	if !semver.IsValid(h.Toolchain) {
		return nil, diag.Image("invalid toolchain version %q", h.Toolchain)
	}

	if semver.Major(h.Toolchain) != semver.Major(Version) {
		return nil, diag.Image("image built by %v can't be run by %v", h.Toolchain, Version)
	}

	return &Image{Header: h, Chunk: chunk, payload: data}, nil
}

// ReadImageFile loads an image from a file. Both thin images and
// self-contained executables are accepted.
func ReadImageFile(name string) (*Image, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}

	if payload, ok, err := extractEmbedded(data); err != nil {
		return nil, err
	} else if ok {
		return LoadImage(payload)
	}

	return LoadImage(data)
}

// Embedded returns the image appended to the running executable, if any.
func Embedded() (*Image, bool, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, false, errors.Wrap(err, "executable")
	}

	f, err := os.Open(exe)
	if err != nil {
		return nil, false, errors.Wrap(err, "open executable")
	}

	defer func() {
		_ = f.Close()
	}()

	inf, err := f.Stat()
	if err != nil {
		return nil, false, errors.Wrap(err, "stat executable")
	}

	if inf.Size() < trailerSize {
		return nil, false, nil
	}

	tr := make([]byte, trailerSize)
	if _, err := f.ReadAt(tr, inf.Size()-trailerSize); err != nil {
		return nil, false, errors.Wrap(err, "read trailer")
	}

	t, ok := parseTrailer(tr)
	if !ok {
		return nil, false, nil
	}

	if t.size > uint64(inf.Size()-trailerSize) {
		return nil, false, diag.Image("corrupt trailer: payload size %d", t.size)
	}

	payload := make([]byte, t.size)
	if _, err := f.ReadAt(payload, inf.Size()-trailerSize-int64(t.size)); err != nil && err != io.EOF {
		return nil, false, errors.Wrap(err, "read payload")
	}

	if blake2b.Sum256(payload) != t.digest {
		return nil, false, diag.Image("payload digest mismatch")
	}

	im, err := LoadImage(payload)
	if err != nil {
		return nil, false, err
	}

	return im, true, nil
}

// The trailer closes a self-contained executable:
// payload size (u64), blake2b-256 of the payload, trailer magic.
const (
	trailerMagic = "ATLGEXE1"
	trailerSize  = 8 + blake2b.Size256 + 8 // untyped: compared with both int and int64
)

type trailer struct {
	size   uint64
	digest [blake2b.Size256]byte
}

func makeTrailer(payload []byte) []byte {
	b := binary.LittleEndian.AppendUint64(nil, uint64(len(payload)))

	sum := blake2b.Sum256(payload)
	b = append(b, sum[:]...)

	return append(b, trailerMagic...)
}

func parseTrailer(b []byte) (t trailer, ok bool) {
	if len(b) != trailerSize || !bytes.Equal(b[trailerSize-len(trailerMagic):], []byte(trailerMagic)) {
		return t, false
	}

	t.size = binary.LittleEndian.Uint64(b)
	copy(t.digest[:], b[8:])

	return t, true
}

func extractEmbedded(data []byte) ([]byte, bool, error) {
	if len(data) < trailerSize {
		return nil, false, nil
	}

	t, ok := parseTrailer(data[len(data)-trailerSize:])
	if !ok {
		return nil, false, nil
	}

	end := uint64(len(data) - trailerSize)
	if t.size > end {
		return nil, false, diag.Image("corrupt trailer: payload size %d", t.size)
	}

	payload := data[end-t.size : end]

	if blake2b.Sum256(payload) != t.digest {
		return nil, false, diag.Image("payload digest mismatch")
	}

	return payload, true, nil
}
