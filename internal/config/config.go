// Package config resolves compiler settings from defaults, the project
// manifest and the environment. Command line flags are applied last by
// the caller.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// ManifestName is looked up in the directory of the source file.
const ManifestName = "atlang.json"

type Config struct {
	Output        string `json:"output"`
	SelfContained bool   `json:"self_contained"`
	Target        string `json:"target"`
	RuntimeStub   string `json:"runtime_stub"`

	LedgerDriver string `json:"ledger_driver"`
	LedgerDSN    string `json:"ledger_dsn"`

	// Ceiling is the admission ceiling of embedded servers.
	Ceiling int64 `json:"ceiling"`

	Verbose bool `json:"verbose"`
}

// Manifest is the project file.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Entry   string `json:"entry"`

	Build Config `json:"build"`
}

func Default() Config {
	return Config{
		LedgerDriver: "sqlite",
		Ceiling:      1000,
	}
}

// Load returns the configuration for compiling src.
// A missing manifest is not an error.
func Load(src string, getenv func(string) (string, bool)) (Config, *Manifest, error) {
	c := Default()

	m, err := ReadManifest(filepath.Dir(src))
	if err != nil {
		return c, nil, err
	}

	if m != nil {
		c.merge(m.Build)
	}

	if getenv == nil {
		getenv = os.LookupEnv
	}

	if err = c.applyEnv(getenv); err != nil {
		return c, m, err
	}

	return c, m, nil
}

// ReadManifest reads ManifestName from dir. It returns nil, nil if there is none.
func ReadManifest(dir string) (*Manifest, error) {
	name := filepath.Join(dir, ManifestName)

	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}

	var m Manifest

	if err = json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	return &m, nil
}

// OutputFor names the image of src if no output is configured.
func (c Config) OutputFor(src string) string {
	if c.Output != "" {
		return c.Output
	}

	base := strings.TrimSuffix(src, filepath.Ext(src))

	if c.SelfContained {
		if strings.HasPrefix(c.Target, "windows/") {
			return base + ".exe"
		}

		return base
	}

	return base + ".atb"
}

func (c *Config) merge(o Config) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.SelfContained {
		c.SelfContained = true
	}
	if o.Target != "" {
		c.Target = o.Target
	}
	if o.RuntimeStub != "" {
		c.RuntimeStub = o.RuntimeStub
	}
	if o.LedgerDriver != "" {
		c.LedgerDriver = o.LedgerDriver
	}
	if o.LedgerDSN != "" {
		c.LedgerDSN = o.LedgerDSN
	}
	if o.Ceiling > 0 {
		c.Ceiling = o.Ceiling
	}
	if o.Verbose {
		c.Verbose = true
	}
}

func (c *Config) applyEnv(getenv func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := getenv(key); ok && v != "" {
			*dst = v
		}
	}

	str("ATLANG_OUTPUT", &c.Output)
	str("ATLANG_TARGET", &c.Target)
	str("ATLANG_RUNTIME_STUB", &c.RuntimeStub)
	str("ATLANG_LEDGER_DRIVER", &c.LedgerDriver)
	str("ATLANG_LEDGER_DSN", &c.LedgerDSN)

	if v, ok := getenv("ATLANG_SELF_CONTAINED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "ATLANG_SELF_CONTAINED")
		}

		c.SelfContained = b
	}

	if v, ok := getenv("ATLANG_CEILING"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return errors.New("ATLANG_CEILING: want a positive integer, got %q", v)
		}

		c.Ceiling = n
	}

	return nil
}
