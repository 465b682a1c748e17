package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/gitreach/internal/app"
	"github.com/alimgiray/gitreach/internal/handlers"
	"github.com/alimgiray/gitreach/internal/middleware"
	"github.com/alimgiray/gitreach/internal/workers"
	"github.com/alimgiray/gitreach/pkg/config"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	gin.SetMode(cfg.Server.Mode)

	a, err := app.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if cfg.Watch.Enabled {
		watchWorker, err := workers.NewWatchWorker("watch-1", cfg.Watch.Schedule, a.Watch)
		if err != nil {
			logger.Fatalf("Failed to create watch worker: %v", err)
		}
		a.Workers.Register(watchWorker)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	handlers.SetupRoutes(router, handlers.Handlers{
		Scrape:      handlers.NewScrapeHandler(a.Scrapes, a.Export, a.Share),
		WatchedRepo: handlers.NewWatchedRepoHandler(a.Watch),
		Slack:       handlers.NewSlackHandler(a.Notifier),
		Health:      handlers.NewHealthHandler(a.DB, a.Workers),
		NotFound:    handlers.NewNotFoundHandler(),
	}, cfg.API.Token)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	// Start workers
	a.Workers.StartAll()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	// running scrapes are marked failed on the way out
	a.Workers.StopAll()
	logger.Infof("Server stopped")
}
