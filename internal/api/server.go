package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/config"
	"github.com/t86xu3/dcard-auto/internal/domain"
)

// Agent identity reported by the liveness probe.
const (
	AgentName    = "dcard-auto-capture-agent"
	AgentVersion = "1.2.0"
)

// Controller is the store & sync surface the API fronts.
type Controller interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Delete(ctx context.Context, itemID string) (int, error)
	Clear(ctx context.Context) error
	SyncAll(ctx context.Context) (domain.SyncReport, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context)
	AuthStatus(ctx context.Context) domain.AuthStatus
	SavePendingArticle(ctx context.Context, article domain.Article) error
	PendingArticle(ctx context.Context) (domain.Article, error)
}

// CaptureTrigger fires an explicit capture of the currently held payload.
type CaptureTrigger interface {
	Capture(ctx context.Context) (domain.Product, error)
}

// Pinger is a health-checkable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	controller Controller
	capture    CaptureTrigger
	store      Pinger
	archive    Pinger // may be nil
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, ctrl Controller, capture CaptureTrigger, store, archive Pinger, l *zap.Logger) *Server {
	s := &Server{
		config:     cfg,
		controller: ctrl,
		capture:    capture,
		store:      store,
		archive:    archive,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
