// Package server provides the HTTP REST API for the book production pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/types"
	"github.com/jonathan/book-foundry/internal/ws"
)

// Pipeline is the controller surface the server exposes over HTTP.
type Pipeline interface {
	Start(ctx context.Context, cfg types.RunConfig) (uuid.UUID, error)
	Status(runID uuid.UUID) (*types.Run, error)
	Runs() []*types.Run
	Abort(runID uuid.UUID) error
}

// Config holds server configuration
type Config struct {
	Addr string
	// AuthDisabled skips bearer token checks. Intended for local development.
	AuthDisabled bool
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	pipeline   Pipeline
	wsManager  *ws.Manager
	jwtService *JWTService
	cfg        Config
}

// New creates a new server instance. jwtService may be nil only when auth is
// disabled.
func New(cfg Config, pipeline Pipeline, wsManager *ws.Manager, jwtService *JWTService) (*Server, error) {
	if !cfg.AuthDisabled && jwtService == nil {
		return nil, fmt.Errorf("JWT service is required unless auth is disabled")
	}

	s := &Server{
		pipeline:   pipeline,
		wsManager:  wsManager,
		jwtService: jwtService,
		cfg:        cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /runs", s.withAuth(http.HandlerFunc(s.handleCreateRun)))
	mux.Handle("GET /runs", s.withAuth(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("GET /runs/{id}", s.withAuth(http.HandlerFunc(s.handleGetRun)))
	mux.Handle("POST /runs/{id}/abort", s.withAuth(http.HandlerFunc(s.handleAbortRun)))
	mux.HandleFunc("GET /ws", ws.Handler(wsManager))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for pipeline runs
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests and blocks until shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Handler exposes the routing stack for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// withAuth validates the bearer token on mutating and read endpoints.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthDisabled {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.errorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.jwtService.ValidateToken(token); err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
