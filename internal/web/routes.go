package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fasinfasi/Face-Lock-System/internal/web/handlers"
	"github.com/fasinfasi/Face-Lock-System/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.service, s.store, sessionManager, s.userData)
	filesHandler := handlers.NewFilesHandler(s.userData)
	statsHandler := handlers.NewStatsHandler(s.store, s.service.Policy())

	// Health check (no auth required)
	s.router.Get("/health", handlers.HealthCheck)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Prometheus metrics
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Face endpoints (registration and login are by nature unauthenticated)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/detect-face", authHandler.DetectFace)

		// Session endpoints
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Everything else requires a valid session
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Account
			r.Delete("/users/{identity}", authHandler.DeleteUser)

			// Stats
			r.Get("/stats", statsHandler.Get)

			// Per-user file storage
			r.Get("/folders", filesHandler.ListFolders)
			r.Post("/folders", filesHandler.CreateFolder)
			r.Delete("/folders/{folder}", filesHandler.DeleteFolder)
			r.Get("/folders/{folder}/files", filesHandler.ListFiles)
			r.Post("/folders/{folder}/files", filesHandler.UploadFile)
			r.Get("/folders/{folder}/files/{file}", filesHandler.DownloadFile)
			r.Delete("/folders/{folder}/files/{file}", filesHandler.DeleteFile)
		})
	})
}
