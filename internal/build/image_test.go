package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlang/internal/bytecode"
	"atlang/internal/diag"
)

func testImage(t *testing.T) *Image {
	t.Helper()

	chunk, err := Compile(context.Background(), `@x = @getEnv(@HOME) @print("home: " + @x) @exit(3)`)
	require.NoError(t, err)

	im, err := NewImage(chunk)
	require.NoError(t, err)

	return im
}

func TestImageRoundTrip(t *testing.T) {
	im := testImage(t)

	assert.Equal(t, Version, im.Header.Toolchain)
	assert.Len(t, im.Header.BuildID, 36)
	assert.Equal(t, []string{"atlang-runtime@" + Version}, im.RequiredComponents())

	back, err := LoadImage(im.Bytes())
	require.NoError(t, err)

	assert.Equal(t, im.Header, back.Header)
	assert.Equal(t, im.Chunk.Code, back.Chunk.Code)
	assert.Equal(t, im.Chunk.Constants, back.Chunk.Constants)
	assert.Equal(t, im.Chunk.Locals, back.Chunk.Locals)
	assert.Equal(t, im.Chunk.Lines, back.Chunk.Lines)
}

func TestLoadImageRejects(t *testing.T) {
	_, err := LoadImage([]byte("not an image at all"))
	assert.True(t, diag.Is(err, diag.ImageError), "%v", err)

	chunk := bytecode.NewChunk()
	chunk.WriteOp(bytecode.OpReturn, 1)

	data, err := bytecode.Marshal(bytecode.Header{Format: bytecode.FormatVersion, Toolchain: "v1.2.0", BuildID: "x"}, chunk)
	require.NoError(t, err)

	_, err = LoadImage(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v1.2.0")

	data, err = bytecode.Marshal(bytecode.Header{Format: bytecode.FormatVersion, Toolchain: "v0.9.3", BuildID: "x"}, chunk)
	require.NoError(t, err)

	_, err = LoadImage(data)
	assert.NoError(t, err, "same major version")
}

func TestPackageThin(t *testing.T) {
	im := testImage(t)
	out := filepath.Join(t.TempDir(), "prog.atb")

	art, err := Package(context.Background(), im, PackageOptions{Output: out})
	require.NoError(t, err)

	assert.False(t, art.SelfContained)
	assert.Equal(t, im.RequiredComponents(), art.RequiredComponents)
	assert.Equal(t, int64(len(im.Bytes())), art.Size)
	assert.Len(t, art.Digest, 64)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, im.Bytes(), data)

	inf, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), inf.Mode().Perm())

	back, err := ReadImageFile(out)
	require.NoError(t, err)
	assert.Equal(t, im.Header.BuildID, back.Header.BuildID)
}

func TestPackageSelfContained(t *testing.T) {
	dir := t.TempDir()

	stub := filepath.Join(dir, "runtime")
	require.NoError(t, os.WriteFile(stub, []byte("#!runtime stub\n"), 0o755))

	im := testImage(t)
	out := filepath.Join(dir, "prog")

	art, err := Package(context.Background(), im, PackageOptions{
		Output:        out,
		SelfContained: true,
		Target:        "plan9/arm",
		Stub:          stub,
	})
	require.NoError(t, err)

	assert.True(t, art.SelfContained)
	assert.Empty(t, art.RequiredComponents)
	assert.Equal(t, "plan9/arm", art.Target)

	inf, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, art.Size, inf.Size())
	assert.Equal(t, os.FileMode(0o755), inf.Mode().Perm(), "executable")

	back, err := ReadImageFile(out)
	require.NoError(t, err)
	assert.Equal(t, im.Header, back.Header)
	assert.Equal(t, im.Chunk.Code, back.Chunk.Code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	data[len("#!runtime stub\n")] ^= 0xff

	require.NoError(t, os.WriteFile(out, data, 0o755))

	_, err = ReadImageFile(out)
	assert.True(t, diag.Is(err, diag.ImageError), "%v", err)
}

func TestPackageSelfContainedForeignTargetNeedsStub(t *testing.T) {
	target := "plan9/arm"
	if target == HostTarget() {
		target = "windows/386"
	}

	_, err := Package(context.Background(), testImage(t), PackageOptions{
		Output:        filepath.Join(t.TempDir(), "prog"),
		SelfContained: true,
		Target:        target,
	})
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.ImageError))
}

func TestCopyWithRetries(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	dst := filepath.Join(dir, "dst")
	require.NoError(t, CopyWithRetries(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	start := time.Now()

	err = CopyWithRetries(context.Background(), filepath.Join(dir, "missing"), dst)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "missing source is not retried")
}

func TestCopyWithRetriesGivesUp(t *testing.T) {
	defer func(n uint64, d time.Duration) {
		CopyRetries, CopyInitialInterval = n, d
	}(CopyRetries, CopyInitialInterval)

	CopyRetries, CopyInitialInterval = 3, time.Millisecond

	dir := t.TempDir()

	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	// the destination is a directory
	err := CopyWithRetries(context.Background(), src, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
}
