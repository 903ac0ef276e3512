package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/agent"
	"github.com/t86xu3/dcard-auto/internal/api"
	"github.com/t86xu3/dcard-auto/internal/backend"
	"github.com/t86xu3/dcard-auto/internal/bus"
	"github.com/t86xu3/dcard-auto/internal/config"
	"github.com/t86xu3/dcard-auto/internal/controller"
	"github.com/t86xu3/dcard-auto/internal/interceptor"
	"github.com/t86xu3/dcard-auto/internal/monitoring"
	"github.com/t86xu3/dcard-auto/internal/store"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	redisStore := store.NewRedisStore(cfg.RedisAddr)

	var archiver controller.Archiver
	var archivePinger api.Pinger
	if cfg.PostgresURL != "" {
		archive, err := store.NewArchive(cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer archive.Close()
		archiver = archive
		archivePinger = archive
	}

	// Initialize Monitoring, Backend Client, Controller
	metrics := monitoring.NewMetrics()
	backendClient := backend.NewClient(cfg.BackendURL, cfg.SyncRPS)
	ctrl := controller.New(redisStore, backendClient, archiver, metrics, logger)
	ctrl.Hydrate(context.Background())

	// Attach the browser to the marketplace
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	origin := bus.OriginOf(cfg.MarketplaceURL)
	events := bus.New(origin, logger)

	icp := interceptor.New(events, origin,
		time.Duration(cfg.PageSettleMS)*time.Millisecond,
		time.Duration(cfg.NavPollMS)*time.Millisecond,
		logger)
	if err := icp.Attach(tabCtx); err != nil {
		logger.Fatal("failed to attach interceptor", zap.Error(err))
	}
	if err := chromedp.Run(tabCtx, chromedp.Navigate(cfg.MarketplaceURL)); err != nil {
		logger.Fatal("failed to open marketplace page", zap.Error(err))
	}
	go icp.Run(tabCtx)

	// Page agent: holds the latest payload, handles capture commands
	pageAgent := agent.New(events, ctrl, agent.NewChromePage(tabCtx), logger)
	agentCtx, cancelAgent := context.WithCancel(context.Background())
	defer cancelAgent()
	go pageAgent.Run(agentCtx)

	// Initialize API Server
	server := api.NewServer(cfg, ctrl, pageAgent, redisStore, archivePinger, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("capture agent started",
		zap.String("port", cfg.ServerPort),
		zap.String("marketplace", cfg.MarketplaceURL))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelAgent()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("agent exiting")
}
