package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nikand.dev/go/cli"

	"atlang/internal/bytecode"
	"atlang/internal/config"
)

func TestIsImage(t *testing.T) {
	dir := t.TempDir()

	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))

		return p
	}

	for _, tc := range []struct {
		path string
		want bool
	}{
		{filepath.Join(dir, "missing.atb"), true},
		{filepath.Join(dir, "PROG.ATB"), true},
		{write("main.at", `@print("hi")`), false},
		{write("prog", bytecode.Magic+"rest of image"), true},
		{write("short", "AT"), false},
		{filepath.Join(dir, "missing"), false},
	} {
		assert.Equal(t, tc.want, isImage(tc.path), "%v", tc.path)
	}
}

func TestCompileFlagsOverrideConfig(t *testing.T) {
	cfg := config.Config{
		Output:       "from-config.atb",
		Target:       "linux/arm64",
		LedgerDriver: "sqlite",
		LedgerDSN:    "builds.db",
	}

	compileFlags{}.apply(&cfg)
	assert.Equal(t, "from-config.atb", cfg.Output, "empty flags keep config")
	assert.False(t, cfg.SelfContained)

	compileFlags{
		Output:        "out",
		SelfContained: true,
		Stub:          "runtime",
		LedgerDSN:     "postgres://db",
		LedgerDriver:  "postgres",
	}.apply(&cfg)

	assert.Equal(t, config.Config{
		Output:        "out",
		SelfContained: true,
		Target:        "linux/arm64",
		RuntimeStub:   "runtime",
		LedgerDriver:  "postgres",
		LedgerDSN:     "postgres://db",
	}, cfg)
}

func TestSingleArg(t *testing.T) {
	_, err := singleArg(&cli.Command{Name: "run"})
	assert.ErrorContains(t, err, "usage: atlang run <file>")

	_, err = singleArg(&cli.Command{Name: "run", Args: cli.Args{"a.at", "b.at"}})
	assert.Error(t, err)

	path, err := singleArg(&cli.Command{Name: "run", Args: cli.Args{"a.at"}})
	require.NoError(t, err)
	assert.Equal(t, "a.at", path)
}

func TestFormatFiles(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.at")
	require.NoError(t, os.WriteFile(a, []byte(`@x="1"   @print(@x)`), 0o600))

	b := filepath.Join(dir, "b.at")
	require.NoError(t, os.WriteFile(b, []byte(`@exit(3)`), 0o644))

	bad := filepath.Join(dir, "bad.at")
	require.NoError(t, os.WriteFile(bad, []byte(`@print(`), 0o644))

	ctx := context.Background()

	var out, errs bytes.Buffer

	err := formatFiles(ctx, &out, &errs, []string{a, b}, false)
	require.NoError(t, err)
	assert.Equal(t, "@x = \"1\"\n@print(@x)\n@exit(3)\n", out.String(), "argument order")

	out.Reset()

	err = formatFiles(ctx, &out, &errs, []string{a, bad, b}, true)
	assert.ErrorContains(t, err, "1 of 3 files")
	assert.Empty(t, out.String())
	assert.Contains(t, errs.String(), "SyntaxError")

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "@x = \"1\"\n@print(@x)\n", string(data))

	inf, err := os.Stat(a)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), inf.Mode().Perm(), "mode kept")
}
