//go:build integration
// +build integration

package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Feature extraction and the taxonomy stay pure: no transport, no
// persistence, no process execution. Remote classifiers and storage live
// in their own packages.
func TestVisionAndTaxonomyStayPure(t *testing.T) {
	config := &packages.Config{
		Mode:  packages.NeedName | packages.NeedImports | packages.NeedDeps,
		Tests: false,
		Dir:   guardrailRepoRoot(t),
	}
	pkgs, err := packages.Load(config,
		"./internal/studio/vision",
		"./internal/studio/domain",
	)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatal("package load errors")
	}
	if len(pkgs) == 0 {
		t.Fatal("no packages matched")
	}

	forbidden := []string{
		"net/http",
		"database/sql",
		"os/exec",
	}

	var violations []string
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			for _, banned := range forbidden {
				if importPath == banned {
					violations = append(violations, pkg.PkgPath+" imports "+importPath)
				}
			}
			if strings.Contains(importPath, "/internal/studio/storage") {
				violations = append(violations, pkg.PkgPath+" imports "+importPath)
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("vision and domain packages must stay pure:\n- %s",
			strings.Join(violations, "\n- "))
	}
}

func guardrailRepoRoot(t *testing.T) string {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			t.Fatal("go.mod not found")
		}
		wd = parent
	}
}
