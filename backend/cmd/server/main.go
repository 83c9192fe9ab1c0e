package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"podgraph/backend/internal/api"
	"podgraph/backend/internal/graph"
	"podgraph/backend/internal/notify"
	"podgraph/backend/internal/transport"
	"podgraph/backend/pkg/config"
	"podgraph/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	if !cfg.HasIdentity() {
		log.Warn("WEBID is not set, only operations on explicit URIs will work")
	}

	hub := notify.NewHub(log.Named("notify"))
	defer hub.Close()

	router := newRouter(cfg, hub, log)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("webid", cfg.WebID),
		zap.Bool("proxied", cfg.ProxyURL != ""),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func newRouter(cfg *config.Config, notifier *notify.Hub, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	proxy := transport.Direct
	if cfg.ProxyURL != "" {
		proxy = transport.QueryProxy(cfg.ProxyURL)
	}
	client := transport.New(transport.Options{
		Proxy:         proxy,
		Timeout:       cfg.FetchTimeout,
		SessionCookie: cfg.SessionCookie,
		Logger:        log.Named("transport"),
	})

	user := graph.User{WebID: cfg.WebID, Storage: cfg.Storage}
	repo := graph.NewRepository(client,
		graph.WithNotifier(notifier),
		graph.WithIdentity(graph.StaticIdentity{User: user}),
		graph.WithLogger(log.Named("graph")),
		graph.WithMaxConcurrentFetches(cfg.MaxConcurrentFetches),
	)

	return api.NewRouter(api.NewHandler(repo, user, log.Named("api")), notifier, log)
}
