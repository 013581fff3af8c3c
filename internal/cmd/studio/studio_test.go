package studio

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("studio", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.Port)
	}
	if cfg.DBPath != "studio.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Mode != "auto" {
		t.Fatalf("expected default mode auto, got %q", cfg.Mode)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("studio", flag.ContinueOnError)
	args := []string{
		"-port", "6000",
		"-db", "figures.db",
		"-mode", "local",
		"-caption-endpoint", "https://caption.example",
		"-vlm-endpoint", "https://vlm.example",
		"-vlm-model", "other-model",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 6000 || cfg.DBPath != "figures.db" || cfg.Mode != "local" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CaptionEndpoint != "https://caption.example" {
		t.Fatalf("expected caption endpoint override, got %q", cfg.CaptionEndpoint)
	}
	if cfg.VLMEndpoint != "https://vlm.example" || cfg.VLMModel != "other-model" {
		t.Fatalf("expected vlm overrides, got %+v", cfg)
	}
}

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("FIGDOCK_STUDIO_PORT", "5050")
	t.Setenv("FIGDOCK_STUDIO_MODE", "local")

	fs := flag.NewFlagSet("studio", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 5050 {
		t.Fatalf("expected env port 5050, got %d", cfg.Port)
	}
	if cfg.Mode != "local" {
		t.Fatalf("expected env mode local, got %q", cfg.Mode)
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	err := Run(t.Context(), Config{Mode: "remote", DBPath: ":memory:"})
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
