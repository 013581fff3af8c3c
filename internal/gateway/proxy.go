package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"

	"github.com/figdock/figdock/internal/platform/timeouts"
)

// retryAfterSeconds is advertised when no replica can take the request.
const retryAfterSeconds = 5

// ReplicaPool exposes the ready replica ports the proxy may target.
type ReplicaPool interface {
	ReadyPorts() []int
}

// Proxy forwards external traffic to ready replicas round-robin.
type Proxy struct {
	pool     ReplicaPool
	maxConns int
	logf     func(format string, args ...any)

	next     atomic.Uint64
	inflight atomic.Int64
	draining atomic.Bool

	mu       sync.Mutex
	backends map[int]*httputil.ReverseProxy
	perPort  map[int]*atomic.Int64
}

// NewProxy builds a proxy over the pool. maxConns bounds concurrent
// connections on the external listener.
func NewProxy(pool ReplicaPool, maxConns int, logf func(format string, args ...any)) (*Proxy, error) {
	if pool == nil {
		return nil, fmt.Errorf("replica pool is required")
	}
	if maxConns <= 0 {
		return nil, fmt.Errorf("max connections must be positive")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Proxy{
		pool:     pool,
		maxConns: maxConns,
		logf:     logf,
		backends: map[int]*httputil.ReverseProxy{},
		perPort:  map[int]*atomic.Int64{},
	}, nil
}

// InFlight returns the number of requests currently being proxied.
func (p *Proxy) InFlight() int64 {
	return p.inflight.Load()
}

// InFlightByPort snapshots per-replica-port request counts.
func (p *Proxy) InFlightByPort() map[int]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]int64, len(p.perPort))
	for port, counter := range p.perPort {
		out[port] = counter.Load()
	}
	return out
}

// Drain stops the proxy accepting new work. In-flight requests finish.
func (p *Proxy) Drain() {
	p.draining.Store(true)
}

// Draining reports whether the proxy refuses new work.
func (p *Proxy) Draining() bool {
	return p.draining.Load()
}

// ServeHTTP picks a ready replica round-robin and forwards the request.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.draining.Load() {
		unavailable(w, "gateway is draining")
		return
	}
	ports := p.pool.ReadyPorts()
	if len(ports) == 0 {
		unavailable(w, "no replica is ready")
		return
	}

	port := ports[int(p.next.Add(1)-1)%len(ports)]
	backend, counter := p.backend(port)

	p.inflight.Add(1)
	counter.Add(1)
	defer func() {
		counter.Add(-1)
		p.inflight.Add(-1)
	}()

	backend.ServeHTTP(w, r)
}

// backend returns the cached reverse proxy and counter for a replica port.
func (p *Proxy) backend(port int) (*httputil.ReverseProxy, *atomic.Int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	backend, ok := p.backends[port]
	if !ok {
		target := &url.URL{Scheme: "http", Host: "127.0.0.1:" + strconv.Itoa(port)}
		backend = httputil.NewSingleHostReverseProxy(target)
		backend.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			p.logf("proxy to replica port %d failed: %v", port, err)
			w.WriteHeader(http.StatusBadGateway)
		}
		p.backends[port] = backend
		p.perPort[port] = &atomic.Int64{}
	}
	return backend, p.perPort[port]
}

func unavailable(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	http.Error(w, message, http.StatusServiceUnavailable)
}

// ProxyServer serves the external listener with a connection cap.
type ProxyServer struct {
	addr       string
	proxy      *Proxy
	httpServer *http.Server
}

// NewProxyServer wraps the proxy in an HTTP server bound to addr.
func NewProxyServer(addr string, proxy *Proxy) (*ProxyServer, error) {
	if addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if proxy == nil {
		return nil, fmt.Errorf("proxy is required")
	}
	return &ProxyServer{
		addr:  addr,
		proxy: proxy,
		httpServer: &http.Server{
			Handler:           otelhttp.NewHandler(proxy, "gateway.proxy"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe accepts connections until ctx is cancelled, limiting
// concurrent connections to the proxy's cap.
func (s *ProxyServer) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	limited := netutil.LimitListener(listener, s.proxy.maxConns)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(limited)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown proxy server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
