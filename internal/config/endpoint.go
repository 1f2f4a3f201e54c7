package config

import (
	"net"
	"strings"
)

const (
	ProductionEndpoint = "https://vendoriq-backend-d6sb.onrender.com/api/"
	LocalEndpoint      = "http://localhost:8000/api/"
)

// ResolveBaseEndpoint picks the backend endpoint: an explicit override wins,
// then the local development server when host is loopback, then production.
func ResolveBaseEndpoint(override, host string) string {
	if override = strings.TrimSpace(override); override != "" {
		if !strings.HasSuffix(override, "/") {
			override += "/"
		}
		return override
	}
	if IsLoopbackHost(host) {
		return LocalEndpoint
	}
	return ProductionEndpoint
}

// IsLoopbackHost reports whether host (optionally with a port) names the
// local machine.
func IsLoopbackHost(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
