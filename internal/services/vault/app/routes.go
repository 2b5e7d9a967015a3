package server

import (
	"context"
	"net/http"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/telemetry/metrics"
	"github.com/louisbranch/tokenvault/internal/platform/timeouts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func (s *Server) routes(registry *metrics.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil))
	mux.Handle("GET /metrics", registry.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// handleHealthz reports whether storage answers reads. An uninitialized vault
// is still healthy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Operation)
	defer cancel()
	_, err := s.engine.GetVault(ctx)
	if err != nil && !apperrors.IsCode(err, apperrors.CodeVaultNotInitialized) {
		s.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
