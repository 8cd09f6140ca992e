// Package api exposes the cluster lifecycle over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietdv277/cirrus/internal/logging"
)

// ServiceName identifies this service in health checks and logs
const ServiceName = "cirrus"

// Config represents server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// ShutdownTimeout bounds how long in-flight transitions may finish
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration. Transitions block
// until the external tools exit, so writes are bounded by the tool timeout.
func DefaultConfig(addr string, toolTimeout time.Duration) Config {
	return Config{
		Addr:            addr,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    toolTimeout + time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// RouterOptions configures NewRouter
type RouterOptions struct {
	Service  Service
	Logger   logging.Logger
	Registry *prometheus.Registry
	Version  string
}

// NewRouter creates the gin engine with middleware, health, metrics and
// cluster routes
func NewRouter(opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware())
	router.Use(NewHTTPMetrics(reg).Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": ServiceName,
			"version": opts.Version,
		})
	})
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	router.GET("/metrics", func(c *gin.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})

	NewHandler(opts.Service).Register(router)
	return router
}

// Start serves router until ctx is done, then shuts down gracefully
func Start(ctx context.Context, cfg Config, router http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
