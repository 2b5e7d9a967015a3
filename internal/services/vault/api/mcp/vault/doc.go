// Package vault exposes the custody engine as MCP tools.
//
// Amounts cross the wire as decimal strings so the full unsigned 64-bit range
// survives JSON clients that decode numbers as floats.
package vault
