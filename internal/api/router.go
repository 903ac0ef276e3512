package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", s.handleHealthCheck)
	r.Get("/api/ping", s.handlePing)

	r.Route("/api", func(r chi.Router) {
		r.Post("/capture", s.handleCapture)
		r.Get("/products", s.handleListProducts)
		r.Delete("/products/{itemID}", s.handleDeleteProduct)
		r.Delete("/products", s.handleClearProducts)
		r.Post("/sync", s.handleSyncAll)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/status", s.handleAuthStatus)
		r.Post("/paste", s.handlePaste)
		r.Get("/paste/pending", s.handlePendingArticle)
	})

	return r
}
