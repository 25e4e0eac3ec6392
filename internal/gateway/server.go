// Package gateway exposes the step loop and the provider router over an
// HTTP API.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"lxagent/internal/agent"
	"lxagent/internal/config"
	internalContext "lxagent/internal/context"
	"lxagent/internal/gateway/middleware"
	"lxagent/internal/gateway/websocket"
	"lxagent/internal/provider"
	"lxagent/internal/router"
	"lxagent/internal/session"
)

// Deps carries the constructed subsystems the gateway serves.
type Deps struct {
	Config     *config.Config
	Router     *router.Router
	Providers  *provider.Registry
	Planner    *provider.Planner
	Sessions   *session.Manager
	RunQueue   *session.RunQueue
	ContextMgr *internalContext.Manager
}

// Server is the HTTP gateway server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *websocket.Hub
	deps       Deps
}

// NewServer creates a gateway server over the given dependencies.
func NewServer(deps Deps) *Server {
	r := mux.NewRouter()

	s := &Server{
		router: r,
		hub:    websocket.NewHub(),
		deps:   deps,
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/tools/list", s.handleToolsList).Methods(http.MethodGet)
	r.HandleFunc("/tools/call", s.handleToolsCall).Methods(http.MethodPost)
	r.HandleFunc("/mcp/services", s.handleMCPServices).Methods(http.MethodGet)
	r.HandleFunc("/mcp/capabilities", s.handleMCPCapabilities).Methods(http.MethodGet)
	r.HandleFunc("/llm/chat", s.handleLLMChat).Methods(http.MethodPost)
	r.HandleFunc("/command/execute", s.handleCommandExecute).Methods(http.MethodPost)
	r.HandleFunc("/session/manage", s.handleSessionManage).Methods(http.MethodPost)
	r.HandleFunc("/session/{id}", s.handleSessionDelete).Methods(http.MethodDelete)
	r.HandleFunc("/ws", s.hub.Handler)

	handler := middleware.Recovery(middleware.Logging(middleware.CORS(r)))

	s.httpServer = &http.Server{
		Addr:              deps.Config.Gateway.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// Start begins serving; it blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	slog.Info("gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// loopConfig assembles the step loop policy for one request.
func (s *Server) loopConfig(autoContinue bool, maxSteps int) agent.Config {
	cfg := s.deps.Config
	if maxSteps <= 0 {
		maxSteps = cfg.Context.MaxRounds
	}
	return agent.Config{
		MaxSteps:                maxSteps,
		AutoContinue:            autoContinue,
		DangerousTools:          cfg.Security.DangerousTools,
		ShellConfirm:            cfg.Security.ShellConfirm,
		AutoContinueDangerous:   cfg.Security.AutoContinueDangerous,
		AutoContinueInteractive: cfg.Security.AutoContinueInteractive,
	}
}
