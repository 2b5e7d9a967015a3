// Package logging builds the zap loggers shared by the vault server and
// vaultctl. Output always goes to stderr so stdio transports keep stdout.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level and encoding for a process logger.
type Config struct {
	Level  string `env:"TOKENVAULT_LOG_LEVEL" envDefault:"info"`
	Format string `env:"TOKENVAULT_LOG_FORMAT" envDefault:"json"`
}

// New builds a logger tagged with the service name.
func New(service string, cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatJSON:
		zcfg = zap.NewProductionConfig()
	case FormatConsole:
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if service = strings.TrimSpace(service); service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

// Validate reports unsupported level or format values.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(strings.TrimSpace(c.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("log format %q is not one of json, console", c.Format)
	}
}
