// Package discovery centralizes internal service-discovery conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceGateway is the public-facing hosting gateway identity.
	ServiceGateway = "gateway"
	// ServiceStudio is the figure classification app identity.
	ServiceStudio = "studio"
	// ServiceMCP is the MCP bridge HTTP service identity.
	ServiceMCP = "mcp"
	// ServiceJaeger is the jaeger HTTP service identity.
	ServiceJaeger = "jaeger"
)

var httpPorts = map[string]int{
	ServiceGateway: 80,
	ServiceStudio:  5000,
	ServiceMCP:     7080,
	ServiceJaeger:  16686,
}

var adminPorts = map[string]int{
	ServiceGateway: 7070,
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// DefaultAdminAddr returns the canonical control-plane address for a service.
func DefaultAdminAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), adminPorts)
}

// OrDefaultHTTPAddr returns value when set, otherwise the service convention.
func OrDefaultHTTPAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultHTTPAddr(service)
}

// OrDefaultAdminAddr returns value when set, otherwise the service convention.
func OrDefaultAdminAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultAdminAddr(service)
}

// OrDefaultHTTPBaseURL returns value when set, otherwise http://<service-host:port>.
func OrDefaultHTTPBaseURL(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	addr := DefaultHTTPAddr(service)
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return service + ":" + strconv.Itoa(port)
}
