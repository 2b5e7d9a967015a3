package vault

import (
	"flag"
	"io"
	"testing"
	"time"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("vault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/vault.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.Transport != "http" || cfg.HTTPAddr != "localhost:8093" || cfg.GRPCPort != 8092 {
		t.Fatalf("unexpected transport defaults %+v", cfg)
	}
	if cfg.GrantMaxTTL != 15*time.Minute || cfg.GrantAudience != "tokenvault" {
		t.Fatalf("unexpected grant defaults %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log defaults %+v", cfg.Log)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("TOKENVAULT_DB_PATH", "/tmp/env.db")
	t.Setenv("TOKENVAULT_GRANT_MAX_TTL", "2m")
	t.Setenv("TOKENVAULT_LOG_FORMAT", "console")

	cfg, err := ParseConfig(newFlagSet(), []string{"-transport", "stdio", "-port", "0", "-db-path", "/tmp/flag.db", "-locale", "pt-BR"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "/tmp/flag.db" || cfg.Transport != "stdio" || cfg.GRPCPort != 0 || cfg.Locale != "pt-BR" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.GrantMaxTTL != 2*time.Minute || cfg.Log.Format != "console" {
		t.Fatalf("env not applied: %+v", cfg)
	}

	serverCfg := cfg.ServerConfig(nil)
	if serverCfg.GRPCAddr != "" {
		t.Fatalf("port 0 should disable grpc, got %q", serverCfg.GRPCAddr)
	}
	if serverCfg.Grant.MaxTTL != 2*time.Minute {
		t.Fatalf("grant config not mapped: %+v", serverCfg.Grant)
	}
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "transport flag", args: []string{"-transport", "smoke"}},
		{name: "transport env", env: map[string]string{"TOKENVAULT_MCP_TRANSPORT": "smoke"}},
		{name: "log level", args: []string{"-log-level", "loud"}},
		{name: "port", args: []string{"-port", "70000"}},
		{name: "grant ttl", env: map[string]string{"TOKENVAULT_GRANT_MAX_TTL": "0s"}},
		{name: "locale flag", args: []string{"-locale", "fr-FR"}},
		{name: "locale env", env: map[string]string{"TOKENVAULT_LOCALE": "en_us"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := ParseConfig(newFlagSet(), tt.args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
