// Package discovery centralizes the default ports and addresses of tokenvault
// processes so the server and vaultctl agree without extra configuration.
package discovery

import (
	"strconv"
	"strings"
)

// ServiceVault is the vault server identity.
const ServiceVault = "vault"

const defaultHost = "localhost"

var grpcPorts = map[string]int{
	ServiceVault: 8092,
}

var httpPorts = map[string]int{
	ServiceVault: 8093,
}

// GRPCPort returns the conventional gRPC port for a service, or 0.
func GRPCPort(service string) int {
	return grpcPorts[strings.TrimSpace(service)]
}

// HTTPPort returns the conventional HTTP port for a service, or 0.
func HTTPPort(service string) int {
	return httpPorts[strings.TrimSpace(service)]
}

// DefaultGRPCAddr returns the local gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(GRPCPort(service))
}

// DefaultHTTPAddr returns the local HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(HTTPPort(service))
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

func defaultAddr(port int) string {
	if port <= 0 {
		return ""
	}
	return defaultHost + ":" + strconv.Itoa(port)
}
