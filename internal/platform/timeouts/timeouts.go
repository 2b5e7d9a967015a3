// Package timeouts defines shared timeout constants for the vault process and
// its operator CLI.
package timeouts

import "time"

// GRPCDial caps the wait for the vault health endpoint to report SERVING.
const GRPCDial = 2 * time.Second

// Operation caps a single vault operation including store retries.
const Operation = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
