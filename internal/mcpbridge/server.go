package mcpbridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/figdock/figdock/internal/platform/branding"
	"github.com/figdock/figdock/internal/platform/discovery"
	"github.com/figdock/figdock/internal/platform/timeouts"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = branding.AppName + " MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP bridge.
type Config struct {
	StudioBaseURL string
	Transport     TransportKind
	HTTPAddr      string
}

// Server hosts the MCP bridge over a studio client.
type Server struct {
	mcpServer *mcp.Server
	client    *StudioClient
}

// New builds an MCP server with the figure tools and resources registered.
func New(studioBaseURL string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	client := NewStudioClient(studioBaseURL)

	mcp.AddTool(mcpServer, FigureClassifyTool(), FigureClassifyHandler(client))
	mcp.AddTool(mcpServer, FigureHistoryTool(), FigureHistoryHandler(client))
	mcp.AddTool(mcpServer, FigureTaxonomyTool(), FigureTaxonomyHandler(client))
	mcpServer.AddResource(TaxonomyResource(), TaxonomyResourceHandler(client))

	return &Server{mcpServer: mcpServer, client: client}
}

// Run creates and serves the MCP bridge until the context ends.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	server := New(cfg.StudioBaseURL)
	if err := server.client.WaitReady(ctx); err != nil {
		return err
	}

	switch cfg.Transport {
	case TransportStdio:
		return server.serveWithTransport(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return server.serveHTTP(ctx, cfg.HTTPAddr)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// serveHTTP serves the MCP server over streamable HTTP until ctx ends.
func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	addr = discovery.OrDefaultHTTPAddr(addr, discovery.ServiceMCP)

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown MCP server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
