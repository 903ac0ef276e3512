package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/agent"
	"github.com/t86xu3/dcard-auto/internal/controller"
	"github.com/t86xu3/dcard-auto/internal/domain"
)

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	product, err := s.capture.Capture(r.Context())
	if err != nil {
		if errors.Is(err, agent.ErrNoProductData) || errors.Is(err, domain.ErrNoItemID) {
			s.respondWithJSON(w, http.StatusBadRequest, map[string]any{
				"success": false, "error": err.Error(),
			})
			return
		}
		s.logger.Error("capture failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "capture failed")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "product": product})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.controller.Products(r.Context())
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not load products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	remaining, err := s.controller.Delete(r.Context(), itemID)
	if err != nil {
		s.logger.Error("failed to delete product", zap.String("item_id", itemID), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not delete product")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "remaining": remaining})
}

func (s *Server) handleClearProducts(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Clear(r.Context()); err != nil {
		s.logger.Error("failed to clear products", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not clear products")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.controller.SyncAll(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrNothingToSync):
			s.respondWithJSON(w, http.StatusBadRequest, map[string]any{
				"success": false, "error": err.Error(),
			})
		case errors.Is(err, controller.ErrLoginRequired):
			s.respondWithJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false, "error": err.Error(),
			})
		default:
			s.logger.Error("bulk resync failed", zap.Error(err))
			s.respondWithError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"total":   report.Total,
		"synced":  report.Synced,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username, err := s.controller.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondWithJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false, "error": err.Error(),
		})
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "username": username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.controller.Logout(r.Context())
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.controller.AuthStatus(r.Context()))
}

func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	var article domain.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.controller.SavePendingArticle(r.Context(), article); err != nil {
		s.logger.Error("failed to store pending article", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not store article")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePendingArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.controller.PendingArticle(r.Context())
	if err != nil {
		s.logger.Error("failed to load pending article", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not load article")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"article": article})
}

// handlePing answers the cross-process liveness probe used by the dashboard
// to detect a running agent.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"pong":    true,
		"version": AgentVersion,
		"name":    AgentName,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["redis"] == "healthy"
	if s.archive != nil {
		if err := s.archive.Ping(ctx); err != nil {
			healthStatus["postgres"] = "unhealthy"
			s.logger.Error("health check failed for postgres", zap.Error(err))
			isHealthy = false
		} else {
			healthStatus["postgres"] = "healthy"
		}
	}

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
