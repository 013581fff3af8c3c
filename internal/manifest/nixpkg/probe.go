package nixpkg

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status reports the outcome of probing one manifest package.
type Status string

const (
	// StatusFound means a probe hint resolved on this host.
	StatusFound Status = "found"
	// StatusMissing means no probe hint resolved.
	StatusMissing Status = "missing"
	// StatusUnknown means the package is not in the catalog.
	StatusUnknown Status = "unknown"
	// StatusSkipped means the catalog entry carries no probe hints.
	StatusSkipped Status = "skipped"
)

// ProbeResult is the probe outcome for one package.
type ProbeResult struct {
	Package string `json:"package"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// Report aggregates probe results for a manifest's package list.
type Report struct {
	Results []ProbeResult `json:"results"`
}

// Counts tallies results by status.
func (r Report) Counts() (found, missing, unknown, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusFound:
			found++
		case StatusMissing:
			missing++
		case StatusUnknown:
			unknown++
		case StatusSkipped:
			skipped++
		}
	}
	return found, missing, unknown, skipped
}

// Prober checks the host for package artifacts. LibDirs and LookPath are
// fields so tests can point probes at fixtures.
type Prober struct {
	LibDirs  []string
	LookPath func(file string) (string, error)
}

var defaultLibDirs = []string{
	"/usr/lib",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/usr/local/lib",
	"/lib",
	"/run/current-system/sw/lib",
}

// NewProber returns a prober over the conventional library directories plus
// LD_LIBRARY_PATH entries.
func NewProber() *Prober {
	dirs := append([]string{}, defaultLibDirs...)
	for _, dir := range filepath.SplitList(os.Getenv("LD_LIBRARY_PATH")) {
		if strings.TrimSpace(dir) != "" {
			dirs = append(dirs, dir)
		}
	}
	return &Prober{LibDirs: dirs, LookPath: exec.LookPath}
}

// Probe checks one catalog entry against the host.
func (p *Prober) Probe(pkg Package) ProbeResult {
	if len(pkg.Libraries) == 0 && len(pkg.Binaries) == 0 {
		return ProbeResult{Package: pkg.Name, Status: StatusSkipped, Detail: "no probe hints"}
	}

	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, bin := range pkg.Binaries {
		if path, err := lookPath(bin); err == nil {
			return ProbeResult{Package: pkg.Name, Status: StatusFound, Detail: path}
		}
	}

	for _, lib := range pkg.Libraries {
		if path, ok := p.findLibrary(lib); ok {
			return ProbeResult{Package: pkg.Name, Status: StatusFound, Detail: path}
		}
	}

	return ProbeResult{Package: pkg.Name, Status: StatusMissing}
}

// Run probes every name in a manifest package list.
func (p *Prober) Run(names []string) Report {
	report := Report{Results: make([]ProbeResult, 0, len(names))}
	for _, name := range names {
		pkg, ok := Lookup(name)
		if !ok {
			report.Results = append(report.Results, ProbeResult{Package: name, Status: StatusUnknown})
			continue
		}
		report.Results = append(report.Results, p.Probe(pkg))
	}
	return report
}

// findLibrary scans the prober's lib dirs for files whose name starts with
// the hint, covering versioned shared objects.
func (p *Prober) findLibrary(hint string) (string, bool) {
	for _, dir := range p.LibDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.HasPrefix(entry.Name(), hint) {
				return filepath.Join(dir, entry.Name()), true
			}
		}
	}
	return "", false
}
