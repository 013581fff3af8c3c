package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/figdock/figdock/internal/grant"
	"github.com/figdock/figdock/internal/manifest"
	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/platform/httpx"
	"github.com/figdock/figdock/internal/platform/timeouts"
)

// AdminServer is the ops control plane: status plus grant-gated scale,
// restart, and drain operations on a separate listener.
type AdminServer struct {
	addr       string
	httpServer *http.Server
	admin      *adminHandler
}

type adminHandler struct {
	manifest   *manifest.Manifest
	supervisor *Supervisor
	proxy      *Proxy
	grants     grant.Config
	onEvent    EventFunc
}

// NewAdminServer wires the control plane around the supervisor and proxy.
func NewAdminServer(addr string, m *manifest.Manifest, supervisor *Supervisor, proxy *Proxy, grants grant.Config, onEvent EventFunc) (*AdminServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("admin address is required")
	}
	if m == nil || supervisor == nil || proxy == nil {
		return nil, fmt.Errorf("manifest, supervisor, and proxy are required")
	}
	admin := &adminHandler{
		manifest:   m,
		supervisor: supervisor,
		proxy:      proxy,
		grants:     grants,
		onEvent:    onEvent,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /healthz", admin.handleHealthz)
	mux.HandleFunc(http.MethodGet+" /ops/status", admin.handleStatus)
	mux.HandleFunc(http.MethodPost+" /ops/scale", admin.handleScale)
	mux.HandleFunc(http.MethodPost+" /ops/restart", admin.handleRestart)
	mux.HandleFunc(http.MethodPost+" /ops/drain", admin.handleDrain)

	handler := httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		httpx.RequestLog(),
	)

	return &AdminServer{
		addr:  addr,
		admin: admin,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Handler exposes the composed handler for tests.
func (s *AdminServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves the control plane until ctx is cancelled.
func (s *AdminServer) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown admin server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (h *adminHandler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *adminHandler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	scaling := h.manifest.Deployment.Scaling
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"target":            h.manifest.Deployment.Target,
		"min_replicas":      scaling.MinReplicas,
		"max_replicas":      scaling.MaxReplicas,
		"concurrency":       scaling.Concurrency,
		"desired":           h.supervisor.Desired(),
		"replicas":          h.supervisor.Status(),
		"in_flight":         h.proxy.InFlight(),
		"in_flight_by_port": h.proxy.InFlightByPort(),
		"draining":          h.proxy.Draining(),
	})
}

func (h *adminHandler) handleScale(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, grant.ScopeScale) {
		return
	}
	var body struct {
		Replicas int `json:"replicas"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scaling := h.manifest.Deployment.Scaling
	if body.Replicas < scaling.MinReplicas || body.Replicas > scaling.MaxReplicas {
		httpx.WriteError(w, apperrors.WithMetadata(
			apperrors.CodeScaleOutOfBounds,
			fmt.Sprintf("replicas must be within [%d, %d]", scaling.MinReplicas, scaling.MaxReplicas),
			map[string]string{
				"min": fmt.Sprint(scaling.MinReplicas),
				"max": fmt.Sprint(scaling.MaxReplicas),
			},
		))
		return
	}

	from := h.supervisor.Desired()
	h.supervisor.Scale(body.Replicas)
	h.emit("ops.scale", map[string]any{"from": from, "to": body.Replicas})
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"replicas": body.Replicas})
}

func (h *adminHandler) handleRestart(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, grant.ScopeRestart) {
		return
	}
	h.emit("ops.restart", nil)
	go h.supervisor.Restart()
	_ = httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "restarting"})
}

func (h *adminHandler) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, grant.ScopeDrain) {
		return
	}
	// New work stops before any replica receives SIGTERM.
	h.proxy.Drain()
	h.emit("ops.drain", nil)
	go h.supervisor.Shutdown()
	_ = httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "draining"})
}

// authorize verifies the bearer ops grant covers the scope. A gateway
// without grant verification configured refuses every mutating call.
func (h *adminHandler) authorize(w http.ResponseWriter, r *http.Request, scope string) bool {
	if !h.grants.Enabled() {
		httpx.WriteError(w, apperrors.New(apperrors.CodeOpsGrantInvalid, "ops grant verification is not configured"))
		return false
	}
	token := bearerToken(r)
	if _, err := grant.Verify(token, scope, h.grants); err != nil {
		httpx.WriteError(w, err)
		return false
	}
	return true
}

func (h *adminHandler) emit(name string, attrs map[string]any) {
	if h.onEvent == nil {
		return
	}
	h.onEvent(name, attrs)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
