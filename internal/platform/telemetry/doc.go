// Package telemetry groups operational observability for tokenvault.
//
// The ledger journal (ledger_entries) is the canonical record of vault
// operations and lives in vault storage. Operational metrics in
// telemetry/metrics are non-mutating observations used for monitoring and
// alerting; they are never read back to derive state.
package telemetry
