// Package metrics provides the Prometheus registry shared by a process.
//
// Every process owns one Registry. It carries the Go runtime and process
// collectors, and services register their own collectors on it. Handler
// exposes the registry in the Prometheus text format for scraping.
package metrics
