// Package studio parses studio command flags and starts the figure
// classification app.
package studio

import (
	"context"
	"flag"
	"fmt"

	"github.com/figdock/figdock/internal/platform/cmd"
	"github.com/figdock/figdock/internal/secrets"
	"github.com/figdock/figdock/internal/studio/app"
	"github.com/figdock/figdock/internal/studio/classify"
	"github.com/figdock/figdock/internal/studio/scrape"
	"github.com/figdock/figdock/internal/studio/storage/sqlite"
	"github.com/figdock/figdock/internal/telemetry"
)

// Config holds studio command configuration.
type Config struct {
	Port            int    `env:"FIGDOCK_STUDIO_PORT"             envDefault:"5000"`
	Addr            string `env:"FIGDOCK_STUDIO_ADDR"`
	DBPath          string `env:"FIGDOCK_STUDIO_DB"               envDefault:"studio.db"`
	Mode            string `env:"FIGDOCK_STUDIO_MODE"             envDefault:"auto"`
	CaptionEndpoint string `env:"FIGDOCK_STUDIO_CAPTION_ENDPOINT"`
	VLMEndpoint     string `env:"FIGDOCK_STUDIO_VLM_ENDPOINT"`
	VLMModel        string `env:"FIGDOCK_STUDIO_VLM_MODEL"        envDefault:"gemini-2.0-flash"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := cmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "the studio server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "the studio listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "classification history database path")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "classifier mode: auto or local")
	fs.StringVar(&cfg.CaptionEndpoint, "caption-endpoint", cfg.CaptionEndpoint, "remote captioning endpoint URL")
	fs.StringVar(&cfg.VLMEndpoint, "vlm-endpoint", cfg.VLMEndpoint, "vision-LLM provider endpoint URL")
	fs.StringVar(&cfg.VLMModel, "vlm-model", cfg.VLMModel, "vision-LLM model name")
	if err := cmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the studio app service.
func Run(ctx context.Context, cfg Config) error {
	mode := classify.Mode(cfg.Mode)
	switch mode {
	case classify.ModeAuto, classify.ModeLocal:
	default:
		return fmt.Errorf("classifier mode %q is not supported", cfg.Mode)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open studio database: %w", err)
	}
	defer store.Close()

	// NewVLMClassifier returns a typed nil without keys or endpoint; the
	// chain must see an untyped nil to skip the stage.
	var vlm classify.Classifier
	if v := classify.NewVLMClassifier(classify.VLMConfig{
		Endpoint: cfg.VLMEndpoint,
		Model:    cfg.VLMModel,
		APIKeys:  secrets.VLMAPIKeys(),
	}); v != nil {
		vlm = v
	}
	caption := classify.NewCaptionClassifier(classify.CaptionConfig{Endpoint: cfg.CaptionEndpoint})
	chain := classify.NewChain(mode, vlm, caption, classify.RuleClassifier{})

	emitter := telemetry.NewEmitter(store, cmd.ServiceStudio)
	service, err := app.NewService(chain, store, scrape.New(nil), emitter)
	if err != nil {
		return err
	}

	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	server, err := app.NewServer(addr, service)
	if err != nil {
		return err
	}
	return cmd.RunWithTelemetry(ctx, cmd.ServiceStudio, server.ListenAndServe)
}
