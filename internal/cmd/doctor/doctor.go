// Package doctor validates a manifest and probes the host for the
// packages it declares.
package doctor

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/figdock/figdock/internal/manifest"
	"github.com/figdock/figdock/internal/manifest/nixpkg"
	entrypoint "github.com/figdock/figdock/internal/platform/cmd"
)

// Exit codes: the report is clean, carries warnings, or the manifest is
// invalid.
const (
	ExitOK       = 0
	ExitWarnings = 1
	ExitInvalid  = 2
)

// Config holds doctor command configuration.
type Config struct {
	ManifestPath string `env:"FIGDOCK_MANIFEST" envDefault:"figdock.yaml"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "deployment manifest path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run checks the manifest and prints a report, returning the exit code.
func Run(cfg Config, out io.Writer) int {
	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		fmt.Fprintf(out, "manifest: %v\n", err)
		return ExitInvalid
	}
	if err := m.Validate(); err != nil {
		fmt.Fprintf(out, "manifest %s is invalid: %v\n", cfg.ManifestPath, err)
		return ExitInvalid
	}

	fmt.Fprintf(out, "manifest %s is valid\n", cfg.ManifestPath)
	fmt.Fprintf(out, "  run:    %s\n", m.Run)
	for _, port := range m.Ports {
		fmt.Fprintf(out, "  port:   %d -> %d\n", port.LocalPort, port.ExternalPort)
	}
	scaling := m.Deployment.Scaling
	fmt.Fprintf(out, "  target: %s (replicas %d-%d, concurrency %d)\n",
		m.Deployment.Target, scaling.MinReplicas, scaling.MaxReplicas, scaling.Concurrency)

	if len(m.Packages) == 0 {
		fmt.Fprintln(out, "no packages declared")
		return ExitOK
	}

	report := nixpkg.NewProber().Run(m.Packages)
	for _, result := range report.Results {
		line := fmt.Sprintf("  %-20s %s", result.Package, result.Status)
		if result.Detail != "" {
			line += " (" + result.Detail + ")"
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}

	found, missing, unknown, skipped := report.Counts()
	fmt.Fprintf(out, "packages: %d found, %d missing, %d unknown, %d skipped\n",
		found, missing, unknown, skipped)
	if missing > 0 || unknown > 0 {
		return ExitWarnings
	}
	return ExitOK
}
