package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port    int           `env:"TOKENVAULT_TEST_PORT" envDefault:"123"`
	Timeout time.Duration `env:"TOKENVAULT_TEST_TIMEOUT" envDefault:"2s"`
}

type validatedConfig struct {
	Mode string `env:"TOKENVAULT_TEST_MODE" envDefault:"stdio"`
}

func (c *validatedConfig) Validate() error {
	if c.Mode != "stdio" && c.Mode != "http" {
		return errors.New("mode must be stdio or http")
	}
	return nil
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.Timeout != 2*time.Second {
		t.Fatalf("expected default timeout 2s, got %v", cfg.Timeout)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TOKENVAULT_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvRunsValidator(t *testing.T) {
	t.Setenv("TOKENVAULT_TEST_MODE", "carrier-pigeon")

	var cfg validatedConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validate env:") {
		t.Fatalf("expected validate env prefix, got %v", err)
	}
}

func TestParseEnvAcceptsValidConfig(t *testing.T) {
	t.Setenv("TOKENVAULT_TEST_MODE", "http")

	var cfg validatedConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != "http" {
		t.Fatalf("mode = %q, want http", cfg.Mode)
	}
}
