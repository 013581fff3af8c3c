// Package gateway parses gateway command flags and starts the hosting daemon.
package gateway

import (
	"context"
	"flag"
	"fmt"

	gatewayapp "github.com/figdock/figdock/internal/gateway"
	"github.com/figdock/figdock/internal/grant"
	"github.com/figdock/figdock/internal/manifest"
	entrypoint "github.com/figdock/figdock/internal/platform/cmd"
	"github.com/figdock/figdock/internal/studio/storage/sqlite"
	"github.com/figdock/figdock/internal/telemetry"
)

// Config holds gateway command configuration.
type Config struct {
	ManifestPath string `env:"FIGDOCK_MANIFEST"             envDefault:"figdock.yaml"`
	Addr         string `env:"FIGDOCK_GATEWAY_ADDR"`
	AdminAddr    string `env:"FIGDOCK_GATEWAY_ADMIN_ADDR"   envDefault:"localhost:7070"`
	BootWorkflow string `env:"FIGDOCK_BOOT_WORKFLOW"`
	ScenarioPath string `env:"FIGDOCK_BOOT_SCENARIO"`
	DBPath       string `env:"FIGDOCK_GATEWAY_DB"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "deployment manifest path")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "external listen address (overrides the manifest's external port)")
	fs.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "control-plane listen address")
	fs.StringVar(&cfg.BootWorkflow, "boot-workflow", cfg.BootWorkflow, "manifest workflow run before serving")
	fs.StringVar(&cfg.ScenarioPath, "scenario", cfg.ScenarioPath, "Lua scenario verified against the app after boot")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "telemetry journal database path (empty disables journaling)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run validates the manifest and serves the hosting daemon.
func Run(ctx context.Context, cfg Config) error {
	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validate manifest %s: %w", cfg.ManifestPath, err)
	}

	grants, err := grant.LoadConfigFromEnv(nil)
	if err != nil {
		return err
	}

	var emitter *telemetry.Emitter
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open telemetry journal: %w", err)
		}
		defer store.Close()
		emitter = telemetry.NewEmitter(store, entrypoint.ServiceGateway)
	}

	gw, err := gatewayapp.New(gatewayapp.Config{
		Manifest:     m,
		ExternalAddr: cfg.Addr,
		AdminAddr:    cfg.AdminAddr,
		BootWorkflow: cfg.BootWorkflow,
		ScenarioPath: cfg.ScenarioPath,
		Grants:       grants,
		Emitter:      emitter,
	})
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGateway, gw.Run)
}
