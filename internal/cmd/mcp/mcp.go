// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"

	"github.com/figdock/figdock/internal/mcpbridge"
	entrypoint "github.com/figdock/figdock/internal/platform/cmd"
)

// Config holds MCP command configuration.
type Config struct {
	Transport  string `env:"FIGDOCK_MCP_TRANSPORT"  envDefault:"stdio"`
	HTTPAddr   string `env:"FIGDOCK_MCP_HTTP_ADDR"  envDefault:"localhost:7080"`
	StudioAddr string `env:"FIGDOCK_MCP_STUDIO_URL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.StudioAddr, "studio-addr", cfg.StudioAddr, "studio API base URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP bridge.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return mcpbridge.Run(ctx, mcpbridge.Config{
			StudioBaseURL: cfg.StudioAddr,
			Transport:     mcpbridge.TransportKind(cfg.Transport),
			HTTPAddr:      cfg.HTTPAddr,
		})
	})
}
