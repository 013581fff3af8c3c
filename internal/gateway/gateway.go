package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/figdock/figdock/internal/grant"
	"github.com/figdock/figdock/internal/manifest"
	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/platform/timeouts"
	"github.com/figdock/figdock/internal/scenario"
	"github.com/figdock/figdock/internal/telemetry"
	"github.com/figdock/figdock/internal/workflow"
)

// Config wires a gateway from a validated manifest.
type Config struct {
	Manifest *manifest.Manifest
	// ExternalAddr is the public listen address. Empty derives
	// ":<externalPort>" from the manifest's primary port mapping.
	ExternalAddr string
	// AdminAddr is the control-plane listen address.
	AdminAddr string
	// BootWorkflow names a manifest workflow run after replica 0 is
	// ready and before the external listener opens, so scenario tasks
	// have a live replica to target. Empty skips the boot workflow.
	BootWorkflow string
	// ScenarioPath names a Lua scenario verified against replica 0 after
	// boot. Empty skips post-boot verification.
	ScenarioPath string
	// Grants configures ops grant verification for the control plane.
	Grants grant.Config
	// Launcher and Prober override process launch and readiness probing.
	Launcher Launcher
	Prober   Prober
	// Emitter journals lifecycle events. Nil disables journaling.
	Emitter *telemetry.Emitter
	Logf    func(format string, args ...any)
}

// Gateway hosts the manifest's app end to end.
type Gateway struct {
	manifest   *manifest.Manifest
	supervisor *Supervisor
	proxy      *Proxy
	proxySrv   *ProxyServer
	adminSrv   *AdminServer
	autoscaler *Autoscaler
	cfg        Config
	basePort   int
	logf       func(format string, args ...any)
	emitter    *telemetry.Emitter
}

// New assembles the gateway. The manifest must already be validated.
func New(cfg Config) (*Gateway, error) {
	if cfg.Manifest == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	if cfg.AdminAddr == "" {
		return nil, fmt.Errorf("admin address is required")
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}

	primary, ok := cfg.Manifest.PrimaryPort()
	if !ok {
		return nil, apperrors.New(apperrors.CodeManifestPortInvalid, "manifest declares no port mapping")
	}
	externalAddr := cfg.ExternalAddr
	if externalAddr == "" {
		externalAddr = ":" + strconv.Itoa(primary.ExternalPort)
	}

	g := &Gateway{
		manifest: cfg.Manifest,
		cfg:      cfg,
		basePort: primary.LocalPort,
		logf:     cfg.Logf,
		emitter:  cfg.Emitter,
	}

	supervisor, err := NewSupervisor(SupervisorConfig{
		Manifest: cfg.Manifest,
		BasePort: primary.LocalPort,
		Launcher: cfg.Launcher,
		Prober:   cfg.Prober,
		Logf:     cfg.Logf,
		OnEvent:  g.journal,
	})
	if err != nil {
		return nil, err
	}
	g.supervisor = supervisor

	scaling := cfg.Manifest.Deployment.Scaling
	maxConns := scaling.MaxReplicas * scaling.Concurrency
	proxy, err := NewProxy(supervisor, maxConns, cfg.Logf)
	if err != nil {
		return nil, err
	}
	g.proxy = proxy

	proxySrv, err := NewProxyServer(externalAddr, proxy)
	if err != nil {
		return nil, err
	}
	g.proxySrv = proxySrv

	adminSrv, err := NewAdminServer(cfg.AdminAddr, cfg.Manifest, supervisor, proxy, cfg.Grants, g.journal)
	if err != nil {
		return nil, err
	}
	g.adminSrv = adminSrv

	if cfg.Manifest.Deployment.Target == manifest.TargetAutoscale && scaling.MaxReplicas > scaling.MinReplicas {
		g.autoscaler = NewAutoscaler(scaling, proxy, supervisor, cfg.Logf, g.journal)
	}
	return g, nil
}

// Run boots the app and serves until ctx is cancelled: replica launch,
// readiness, boot workflow and optional smoke scenario against the live
// replica, then the external proxy, control plane, and autoscaler.
func (g *Gateway) Run(ctx context.Context) error {
	g.supervisor.Start(ctx, g.manifest.Deployment.Scaling.MinReplicas)
	defer g.supervisor.Shutdown()

	if err := g.awaitFirstReplica(ctx); err != nil {
		return err
	}
	if err := g.runBootWorkflow(ctx); err != nil {
		return err
	}
	if err := g.runBootScenario(ctx); err != nil {
		return err
	}

	g.logf("serving %q externally, admin on %q", g.manifest.Run, g.cfg.AdminAddr)
	g.journal("gateway.serving", map[string]any{"replicas": g.supervisor.Desired()})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return g.proxySrv.ListenAndServe(groupCtx) })
	group.Go(func() error { return g.adminSrv.ListenAndServe(groupCtx) })
	if g.autoscaler != nil {
		group.Go(func() error {
			g.autoscaler.Run(groupCtx)
			return nil
		})
	}
	return group.Wait()
}

func (g *Gateway) runBootWorkflow(ctx context.Context) error {
	if g.cfg.BootWorkflow == "" {
		return nil
	}
	wf, ok := g.manifest.Workflow(g.cfg.BootWorkflow)
	if !ok {
		return apperrors.WithMetadata(
			apperrors.CodeWorkflowNotFound,
			fmt.Sprintf("boot workflow %q is not declared", g.cfg.BootWorkflow),
			map[string]string{"workflow": g.cfg.BootWorkflow},
		)
	}
	runner := workflow.NewRunner(map[manifest.TaskKind]workflow.TaskExecutor{
		manifest.TaskShellExec:   &workflow.ShellExecutor{},
		manifest.TaskScenarioRun: &workflow.ScenarioExecutor{BaseURL: g.replicaBaseURL(), Logf: g.logf},
	})
	runner.Logf = g.logf
	g.logf("running boot workflow %q", wf.Name)
	if _, err := runner.Run(ctx, wf); err != nil {
		return fmt.Errorf("boot workflow %q: %w", wf.Name, err)
	}
	return nil
}

// awaitFirstReplica blocks until at least one replica passes readiness.
func (g *Gateway) awaitFirstReplica(ctx context.Context) error {
	deadline := time.NewTimer(timeouts.ReadyWait)
	defer deadline.Stop()
	ticker := time.NewTicker(timeouts.ReadyPoll)
	defer ticker.Stop()

	for {
		if len(g.supervisor.ReadyPorts()) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return apperrors.New(apperrors.CodeReplicaUnavailable, "no replica became ready in time")
		case <-ticker.C:
		}
	}
}

func (g *Gateway) runBootScenario(ctx context.Context) error {
	if g.cfg.ScenarioPath == "" {
		return nil
	}
	sc, err := scenario.LoadFile(g.cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("load boot scenario: %w", err)
	}
	runner := &scenario.Runner{BaseURL: g.replicaBaseURL(), Logf: g.logf}
	g.logf("verifying deployment with scenario %q", sc.Name)
	if _, err := runner.Run(ctx, sc); err != nil {
		return fmt.Errorf("boot scenario %q: %w", sc.Name, err)
	}
	return nil
}

func (g *Gateway) replicaBaseURL() string {
	return "http://127.0.0.1:" + strconv.Itoa(g.basePort)
}

// journal forwards lifecycle events to the telemetry emitter.
func (g *Gateway) journal(name string, attrs map[string]any) {
	if g.emitter == nil {
		return
	}
	severity := telemetry.SeverityInfo
	if name == "replica.exited" {
		severity = telemetry.SeverityWarn
	}
	_ = g.emitter.Emit(context.Background(), telemetry.Event{
		EventName:  name,
		Severity:   severity,
		Attributes: attrs,
	})
}
