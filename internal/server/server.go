// Package server exposes the agent over HTTP: a JSON chat endpoint, a
// WebSocket streaming endpoint, and health reporting.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unisat/agentkit/internal/agent"
	"github.com/unisat/agentkit/internal/config"
	"github.com/unisat/agentkit/internal/domain"
	"github.com/unisat/agentkit/internal/logging"
)

// QueryRunner is the subset of the agent runner the server needs.
type QueryRunner interface {
	Run(ctx context.Context, q domain.Query) (*agent.RunResult, error)
	RunStream(ctx context.Context, q domain.Query, cb agent.StreamCallback) (*agent.RunResult, error)
}

// Status is reported by /health alongside liveness.
type Status struct {
	AgentID         string `json:"agent"`
	MCPEndpoint     string `json:"mcpEndpoint"`
	MCPConnected    bool   `json:"mcpConnected"`
	KnowledgeLoaded bool   `json:"knowledgeLoaded"`
	KnowledgeChunks int    `json:"knowledgeChunks,omitempty"`
}

// queryTimeout bounds a single chat request end to end, tool rounds included.
const queryTimeout = 5 * time.Minute

// Server is the agent HTTP server.
type Server struct {
	cfg    config.ServerConfig
	log    *logging.Logger
	runner QueryRunner
	status Status

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// Option configures the server.
type Option func(*Server)

// WithRunner sets the agent runner. A server without a runner answers
// health checks but rejects chat with 503.
func WithRunner(r QueryRunner) Option {
	return func(s *Server) { s.runner = r }
}

// WithStatus sets the status block reported by /health.
func WithStatus(st Status) Option {
	return func(s *Server) { s.status = st }
}

// New creates an agent server.
func New(cfg config.ServerConfig, log *logging.Logger, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		log: log.Sub("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening. It blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withMiddleware(mux, s.log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: queryTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("agent", s.status.AgentID).
		Msg("agent server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down agent server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) uptime() time.Duration {
	return time.Since(s.startedAt)
}
