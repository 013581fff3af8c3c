package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "localhost:7080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.StudioAddr != "" {
		t.Fatalf("expected empty studio addr, got %q", cfg.StudioAddr)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-transport", "http", "-http-addr", "0.0.0.0:7081", "-studio-addr", "http://127.0.0.1:5000"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
	if cfg.HTTPAddr != "0.0.0.0:7081" {
		t.Fatalf("expected http addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.StudioAddr != "http://127.0.0.1:5000" {
		t.Fatalf("expected studio addr override, got %q", cfg.StudioAddr)
	}
}

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("FIGDOCK_MCP_TRANSPORT", "http")
	t.Setenv("FIGDOCK_MCP_STUDIO_URL", "http://studio.internal:5000")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected env transport http, got %q", cfg.Transport)
	}
	if cfg.StudioAddr != "http://studio.internal:5000" {
		t.Fatalf("expected env studio addr, got %q", cfg.StudioAddr)
	}
}
