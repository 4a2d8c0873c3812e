package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"auth-gateway/internal/config"
	"auth-gateway/internal/container"
	"auth-gateway/internal/handler"
	"auth-gateway/internal/middleware"
	"auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"
)

// maxUpstreamCalls is the longest chain of collaborator calls one login can
// make: verify, lookup by id, lookup by email, create, both lookups again
// after a lost create race, enrich, profile upsert and token mint.
const maxUpstreamCalls = 9

// requestBudget bounds a whole request. Each collaborator call carries its
// own UPSTREAM_TIMEOUT, so the server write deadline must cover them all.
func requestBudget(cfg *config.Config) time.Duration {
	return maxUpstreamCalls*cfg.UpstreamTimeout + 5*time.Second
}

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	server    *http.Server
	log       *logger.Logger
	mu        sync.Mutex
	closed    bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Close Firestore, Postgres and Redis clients
	if r.container != nil {
		if err := r.container.Close(); err != nil {
			errs = append(errs, fmt.Errorf("container close: %w", err))
		}
	}

	if len(errs) > 0 {
		r.log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	log.WithFields(map[string]interface{}{
		"port":          cfg.Port,
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"route_prefix":  cfg.RoutePrefix,
		"identity":      cfg.IdentityBackend,
		"profile_store": cfg.ProfileStore,
	}).Info("Starting auth gateway")

	ctx := context.Background()

	// Create dependency injection container
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Refuse to serve until every collaborator answers
	startupCtx, startupCancel := context.WithTimeout(ctx, 15*time.Second)
	checks, err := c.CheckConnections(startupCtx)
	startupCancel()
	if err != nil {
		_ = c.Close()
		log.WithError(err).WithField("checks", checks).Fatal("Startup connectivity check failed")
	}
	log.WithField("checks", checks).Info("Startup connectivity check passed")

	router := setupRouter(c)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      requestBudget(cfg),
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	resources := &Resources{
		container: c,
		server:    server,
		log:       log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Setup cleanup function that will be called regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	// Setup middlewares
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(c.GetMetrics().WithMetrics)

	healthHandler := handler.NewHealthHandler(c)
	authHandler := handler.NewAuthHandler(c)

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", c.GetMetrics().Handler())

	authRoutes := func(r chi.Router) {
		r.Use(middleware.RateLimit(c.GetRateLimiter(), log))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/google", authHandler.Google)
		r.Post("/kakao", authHandler.Kakao)
	}
	if cfg.RoutePrefix == "" {
		r.Group(authRoutes)
	} else {
		r.Route(cfg.RoutePrefix, authRoutes)
	}

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, "not_found", errors.NewNotFoundError("endpoint not found"), false, log)
	})

	log.Info("Router configured successfully")
	return r
}
