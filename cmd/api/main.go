// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/serene-mind/companion-api/internal/config"
	"github.com/serene-mind/companion-api/internal/events"
	"github.com/serene-mind/companion-api/internal/export"
	"github.com/serene-mind/companion-api/internal/handler"
	"github.com/serene-mind/companion-api/internal/middleware"
	"github.com/serene-mind/companion-api/internal/orchestrator"
	"github.com/serene-mind/companion-api/internal/provider"
	"github.com/serene-mind/companion-api/internal/session"
	"github.com/serene-mind/companion-api/pkg/logger"
	"github.com/serene-mind/companion-api/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "serene-mind-companion", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing")
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the session event sink when NATS is configured
	var sink events.Sink = events.Noop{}
	if cfg.NATSURL != "" {
		publisher, err := events.Connect(ctx, events.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, session events disabled")
		} else {
			defer publisher.Close()
			sink = publisher
		}
	}

	// Construct providers once at startup; absence of a credential degrades
	// the pipeline to the next provider rather than failing hard.
	openModel := provider.NewOpenModel(cfg.OpenModelAPIKey, cfg.OpenModelID, cfg.OpenModelBaseURL, cfg.OpenModelTimeout)
	gemini := provider.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	prober := provider.NewHealthProbe(cfg.HealthEndpointURL, cfg.ProbeTimeout)

	if !openModel.Configured() {
		log.Info("open-model credential absent, responses generated directly")
	}
	if !gemini.Configured() {
		log.Info("general LLM credential absent, pipeline degrades to fixed fallbacks")
	}

	orch := orchestrator.New(openModel, gemini, prober, sink, cfg.SafetyFilterPolicy, log)
	store := session.NewStore()
	exporter := export.NewExporter()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(handler.ProviderInfo{
		OpenModelConfigured: openModel.Configured(),
		GeneralConfigured:   gemini.Configured(),
	})
	sessionHandler := handler.NewSessionHandler(store, orch, exporter, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", sessionHandler.List)
				r.Post("/messages", sessionHandler.Send)
				r.Get("/export", sessionHandler.Export)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error")
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown")
	}

	log.Info("server stopped")
}
