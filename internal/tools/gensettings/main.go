//go:build tools
// +build tools

// Command gensettings writes the default devsetup settings as a TOML file,
// optionally pinning the Go release and its checksum.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/conn-castle/devsetup/internal/config"
	"github.com/conn-castle/devsetup/internal/release"
)

const header = "# devsetup settings. Pass with --config; unknown keys are rejected.\n\n"

func main() {
	output := flag.String("output", "", "output settings path")
	goVersion := flag.String("go-version", "", "Go release to install (for example 1.25.6)")
	goSHA := flag.String("go-sha256", "", "sha256 of the Go release tarball")
	latest := flag.Bool("latest", false, "pin the newest stable Go release and its checksum from go.dev")
	arch := flag.String("arch", runtime.GOARCH, "architecture whose archive checksum --latest pins")
	flag.Parse()

	if strings.TrimSpace(*output) == "" {
		fatalf("--output is required")
	}
	settings := config.DefaultSettings()
	if v := strings.TrimSpace(*goVersion); v != "" {
		settings.GoVersion = strings.TrimPrefix(v, "go")
	}
	settings.GoSHA256 = strings.ToLower(strings.TrimSpace(*goSHA))
	if *latest {
		version, sum, err := pinLatest(*arch)
		if err != nil {
			fatalf("resolve latest Go release: %v", err)
		}
		settings.GoVersion = version
		settings.GoSHA256 = sum
	}
	if err := settings.Validate(); err != nil {
		fatalf("invalid settings: %v", err)
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(settings); err != nil {
		fatalf("encode settings: %v", err)
	}
	if _, err := config.ParseSettings(buf.Bytes(), *output); err != nil {
		fatalf("generated settings do not round-trip: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fatalf("mkdir output dir: %v", err)
	}
	if err := os.WriteFile(*output, buf.Bytes(), 0o644); err != nil {
		fatalf("write %s: %v", *output, err)
	}
}

// pinLatest returns the newest stable Go version and the checksum of its linux archive for arch.
func pinLatest(arch string) (string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	releases, err := release.Index(ctx, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return "", "", err
	}
	version, err := release.Latest(releases)
	if err != nil {
		return "", "", err
	}
	file, err := release.Find(releases, version, "linux", arch)
	if err != nil {
		return "", "", err
	}
	return version, file.SHA256, nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
