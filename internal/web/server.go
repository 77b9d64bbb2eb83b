package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fasinfasi/Face-Lock-System/internal/config"
	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	service        *faceauth.Service
	store          database.UserStore
	userData       *userdata.Store
	gatherer       prometheus.Gatherer
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server. The gatherer serves /metrics and may
// be nil to disable the endpoint.
func NewServer(
	cfg *config.Config,
	service *faceauth.Service,
	store database.UserStore,
	userData *userdata.Store,
	gatherer prometheus.Gatherer,
) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(cfg.Server.SessionSecret)

	s := &Server{
		config:         cfg,
		router:         r,
		service:        service,
		store:          store,
		userData:       userData,
		gatherer:       gatherer,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes(sessionManager)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute, // uploads and downloads can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	// Stop the session cleanup goroutine
	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
