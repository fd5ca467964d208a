// Package server exposes the run controller over HTTP. It is the remote
// counterpart of the CLI: create runs, step them, approve or reject paused
// tasks, and inspect progress.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Gnoscenti/founder-autopilot/internal/orchestrator"
)

// Server is the HTTP server wrapping the run controller.
type Server struct {
	handlers   *Handlers
	httpServer *http.Server
}

// New creates a server listening on addr, backed by the given controller.
func New(addr string, ctrl *orchestrator.Controller) *Server {
	handlers := NewHandlers(ctrl)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/runs", handlers.HandleCreateRun)
	mux.HandleFunc("GET /api/v1/runs", handlers.HandleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", handlers.HandleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/tasks", handlers.HandleListTasks)
	mux.HandleFunc("POST /api/v1/runs/{id}/step", handlers.HandleStep)
	mux.HandleFunc("POST /api/v1/runs/{id}/batch", handlers.HandleBatch)
	mux.HandleFunc("POST /api/v1/runs/{id}/cancel", handlers.HandleCancel)
	mux.HandleFunc("POST /api/v1/runs/{id}/tasks/{task}/approve", handlers.HandleApprove)
	mux.HandleFunc("POST /api/v1/runs/{id}/tasks/{task}/reject", handlers.HandleReject)
	mux.HandleFunc("GET /api/v1/permissions", handlers.HandlePermissions)
	mux.HandleFunc("GET /healthz", handlers.HandleHealth)

	return &Server{
		handlers: handlers,
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// No WriteTimeout: step requests block for the full agent
			// dispatch, including LLM latency and retry backoff.
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		},
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
