package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"atlang/internal/config"
)

const sampleProgram = `@SERVER_ROOT_PATH = "./public"
@SERVER_PORT = getEnv(@PORT)

@if(@SERVER_PORT == "") {
	@SERVER_PORT = "8080"
}

@startServer(@SERVER_ROOT_PATH, @SERVER_PORT)
`

const sampleIndex = `<!doctype html>
<html><body><h1>Hello from AtLang</h1></body></html>
`

// Init creates a project directory with a manifest, a server program
// and a page to serve.
func Init(c *cli.Command) error {
	name := "atlang-project"
	if len(c.Args) > 0 {
		name = c.Args[0]
	}

	if _, err := os.Stat(name); err == nil {
		return errors.New("%v already exists", name)
	}

	m := config.Manifest{
		Name:    filepath.Base(name),
		Version: "0.1.0",
		Entry:   "main.at",
		Build: config.Config{
			LedgerDriver: "sqlite",
		},
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "manifest")
	}

	files := []struct {
		path string
		data []byte
	}{
		{config.ManifestName, append(manifest, '\n')},
		{"main.at", []byte(sampleProgram)},
		{filepath.Join("public", "index.html"), []byte(sampleIndex)},
	}

	for _, f := range files {
		p := filepath.Join(name, f.path)

		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return errors.Wrap(err, "mkdir")
		}

		if err := os.WriteFile(p, f.data, 0o644); err != nil {
			return errors.Wrap(err, "write %v", f.path)
		}
	}

	fmt.Printf("Created %s\n", name)
	fmt.Printf("  atlang run %s\n", filepath.Join(name, "main.at"))

	return nil
}
