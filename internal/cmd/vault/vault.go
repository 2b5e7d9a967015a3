// Package vault parses vault server flags and launches the server runtime.
package vault

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/tokenvault/internal/platform/cmd"
	"github.com/louisbranch/tokenvault/internal/platform/discovery"
	"github.com/louisbranch/tokenvault/internal/platform/errors/i18n"
	"github.com/louisbranch/tokenvault/internal/platform/logging"
	server "github.com/louisbranch/tokenvault/internal/services/vault/app"
	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"go.uber.org/zap"
)

// Config holds vault command configuration.
type Config struct {
	DBPath        string        `env:"TOKENVAULT_DB_PATH" envDefault:"data/vault.db"`
	Transport     string        `env:"TOKENVAULT_MCP_TRANSPORT" envDefault:"http"`
	HTTPAddr      string        `env:"TOKENVAULT_HTTP_ADDR"`
	GRPCPort      int           `env:"TOKENVAULT_GRPC_PORT" envDefault:"8092"`
	MaxConns      int           `env:"TOKENVAULT_HTTP_MAX_CONNS" envDefault:"256"`
	Locale        string        `env:"TOKENVAULT_LOCALE" envDefault:"en-US"`
	GrantAudience string        `env:"TOKENVAULT_GRANT_AUDIENCE" envDefault:"tokenvault"`
	GrantMaxTTL   time.Duration `env:"TOKENVAULT_GRANT_MAX_TTL" envDefault:"15m"`
	Log           logging.Config
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	switch c.Transport {
	case server.TransportHTTP, server.TransportStdio:
	default:
		return fmt.Errorf("transport %q must be %s or %s", c.Transport, server.TransportHTTP, server.TransportStdio)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc port %d is out of range", c.GRPCPort)
	}
	if c.MaxConns < 0 {
		return errors.New("http max conns must not be negative")
	}
	if c.GrantMaxTTL <= 0 {
		return errors.New("grant max ttl must be positive")
	}
	if locales := i18n.Locales(); !slices.Contains(locales, c.Locale) {
		return fmt.Errorf("locale %q must be one of %s", c.Locale, strings.Join(locales, ", "))
	}
	return c.Log.Validate()
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = discovery.DefaultHTTPAddr(discovery.ServiceVault)
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The vault SQLite database path")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "MCP transport: http or stdio")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP address for /mcp, /metrics and /healthz")
	fs.IntVar(&cfg.GRPCPort, "port", cfg.GRPCPort, "The gRPC health server port (0 disables it)")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Maximum concurrent HTTP connections (0 is unlimited)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Default locale for rejection messages")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format: json or console")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig maps command configuration onto server wiring.
func (c Config) ServerConfig(logger *zap.Logger) server.Config {
	grpcAddr := ""
	if c.GRPCPort > 0 {
		grpcAddr = fmt.Sprintf(":%d", c.GRPCPort)
	}
	return server.Config{
		DBPath:    c.DBPath,
		Transport: c.Transport,
		HTTPAddr:  c.HTTPAddr,
		GRPCAddr:  grpcAddr,
		MaxConns:  c.MaxConns,
		Locale:    c.Locale,
		Grant: authz.Config{
			Audience: c.GrantAudience,
			MaxTTL:   c.GrantMaxTTL,
		},
		Logger: logger,
	}
}

// Run starts the vault server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceVault, func(ctx context.Context) error {
		logger, err := logging.New(entrypoint.ServiceVault, cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		return server.Run(ctx, cfg.ServerConfig(logger))
	})
}
