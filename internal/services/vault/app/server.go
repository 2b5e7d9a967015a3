// Package server wires the vault engine, its MCP transport, and the gRPC
// health lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	platformotel "github.com/louisbranch/tokenvault/internal/platform/otel"
	"github.com/louisbranch/tokenvault/internal/platform/telemetry/metrics"
	"github.com/louisbranch/tokenvault/internal/platform/timeouts"
	vaultmcp "github.com/louisbranch/tokenvault/internal/services/vault/api/mcp/vault"
	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"github.com/louisbranch/tokenvault/internal/services/vault/engine"
	vaultsqlite "github.com/louisbranch/tokenvault/internal/services/vault/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// TransportStdio serves MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP serves MCP over streamable HTTP at /mcp.
	TransportHTTP = "http"

	// HealthService is the gRPC health service name reported by the vault.
	HealthService = "tokenvault.vault"

	tracerName = "github.com/louisbranch/tokenvault/internal/services/vault"
)

// Config holds server wiring inputs.
type Config struct {
	DBPath    string
	Transport string
	HTTPAddr  string
	GRPCAddr  string
	// MaxConns caps concurrent HTTP connections; zero means unlimited.
	MaxConns int
	Locale   string
	Grant    authz.Config
	Logger   *zap.Logger
}

// Server hosts the vault engine behind MCP, metrics, and health endpoints.
type Server struct {
	cfg          Config
	logger       *zap.Logger
	store        *vaultsqlite.Store
	engine       *engine.Engine
	mcpServer    *mcp.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	httpListener net.Listener
	httpServer   *http.Server
}

// New opens storage and listeners for a configured vault server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Transport == "" {
		cfg.Transport = TransportHTTP
	}
	if cfg.Transport != TransportHTTP && cfg.Transport != TransportStdio {
		return nil, fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := openStore(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	engineMetrics := engine.NewMetrics()
	if err := registry.Register(engineMetrics.Collectors()...); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	eng, err := engine.New(store, authz.NewVerifier(cfg.Grant),
		engine.WithLogger(logger),
		engine.WithTracer(platformotel.Tracer(tracerName)),
		engine.WithMetrics(engineMetrics),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    eng,
		mcpServer: vaultmcp.NewServer(eng, vaultmcp.Options{Locale: cfg.Locale}),
	}

	if strings.TrimSpace(cfg.GRPCAddr) != "" {
		s.grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on grpc addr %s: %w", cfg.GRPCAddr, err)
		}
		s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		s.health = health.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	if cfg.Transport == TransportHTTP {
		listener, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
		}
		if cfg.MaxConns > 0 {
			listener = netutil.LimitListener(listener, cfg.MaxConns)
		}
		s.httpListener = listener
		s.httpServer = &http.Server{
			Handler:           s.routes(registry),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}
	return s, nil
}

// Run creates and serves a vault server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Engine exposes the custody engine for in-process callers.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// GRPCAddr returns the health listener address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// HTTPAddr returns the HTTP listener address, or "" for stdio.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Serve runs every configured listener and stops them all when any one exits
// or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	defer s.Close()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(serveCtx)

	if s.grpcServer != nil {
		s.logger.Info("vault health server listening", zap.String("addr", s.GRPCAddr()))
		g.Go(func() error {
			defer cancel()
			if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}
	if s.httpServer != nil {
		s.logger.Info("vault HTTP server listening", zap.String("addr", s.HTTPAddr()))
		g.Go(func() error {
			defer cancel()
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}
			return nil
		})
	}
	if s.cfg.Transport == TransportStdio {
		s.logger.Info("vault MCP server on stdio")
		g.Go(func() error {
			defer cancel()
			if err := s.mcpServer.Run(gctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("serve stdio: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})
	return g.Wait()
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}
}

// Close releases listeners and storage.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close vault store", zap.Error(err))
		}
		s.store = nil
	}
}

func openStore(ctx context.Context, path string, logger *zap.Logger) (*vaultsqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "vault.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := vaultsqlite.Open(ctx, path, vaultsqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open vault sqlite store: %w", err)
	}
	return store, nil
}
