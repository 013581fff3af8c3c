package gateway

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ManifestPath != "figdock.yaml" {
		t.Fatalf("expected default manifest path, got %q", cfg.ManifestPath)
	}
	if cfg.AdminAddr != "localhost:7070" {
		t.Fatalf("expected default admin addr, got %q", cfg.AdminAddr)
	}
	if cfg.Addr != "" || cfg.BootWorkflow != "" || cfg.ScenarioPath != "" || cfg.DBPath != "" {
		t.Fatalf("expected empty optional fields, got %+v", cfg)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	args := []string{
		"-manifest", "custom.yaml",
		"-addr", ":8080",
		"-admin-addr", "127.0.0.1:7777",
		"-boot-workflow", "Project",
		"-scenario", "smoke.lua",
		"-db", "journal.db",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ManifestPath != "custom.yaml" {
		t.Fatalf("expected manifest override, got %q", cfg.ManifestPath)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected addr override, got %q", cfg.Addr)
	}
	if cfg.AdminAddr != "127.0.0.1:7777" {
		t.Fatalf("expected admin addr override, got %q", cfg.AdminAddr)
	}
	if cfg.BootWorkflow != "Project" {
		t.Fatalf("expected boot workflow override, got %q", cfg.BootWorkflow)
	}
	if cfg.ScenarioPath != "smoke.lua" {
		t.Fatalf("expected scenario override, got %q", cfg.ScenarioPath)
	}
	if cfg.DBPath != "journal.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
}

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("FIGDOCK_MANIFEST", "env.yaml")
	t.Setenv("FIGDOCK_BOOT_WORKFLOW", "Smoke Check")

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.ManifestPath != "env.yaml" {
		t.Fatalf("expected env manifest path, got %q", cfg.ManifestPath)
	}
	if cfg.BootWorkflow != "Smoke Check" {
		t.Fatalf("expected env boot workflow, got %q", cfg.BootWorkflow)
	}
}

func TestRunRejectsMissingManifest(t *testing.T) {
	err := Run(t.Context(), Config{ManifestPath: "does-not-exist.yaml", AdminAddr: "localhost:0"})
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
