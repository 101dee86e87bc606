package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/config"
	dbRedis "github.com/sawanori/mapmapmap/internal/db/redis"
	logpkg "github.com/sawanori/mapmapmap/internal/logger"
	"github.com/sawanori/mapmapmap/internal/metrics"
	spotrepo "github.com/sawanori/mapmapmap/internal/repository/spot"
	"github.com/sawanori/mapmapmap/internal/repository/vibecache"
	chiTransport "github.com/sawanori/mapmapmap/internal/transport/chi"
	openaiTransport "github.com/sawanori/mapmapmap/internal/transport/openai"
	"github.com/sawanori/mapmapmap/internal/transport/places"
	enrichuc "github.com/sawanori/mapmapmap/internal/usecase/enrich"
	healthuc "github.com/sawanori/mapmapmap/internal/usecase/health"
	recommenduc "github.com/sawanori/mapmapmap/internal/usecase/recommend"
	textsearchuc "github.com/sawanori/mapmapmap/internal/usecase/textsearch"
	"github.com/sawanori/mapmapmap/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mapmapmap API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Provider clients
	placesClient := places.NewClient(&places.Config{
		APIKey:     cfg.Places.APIKey,
		BaseURL:    cfg.Places.BaseURL,
		MaxRetries: cfg.Places.MaxRetries,
		Logger:     logger,
	})
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Enrichment.APIKey,
		BaseURL: cfg.Enrichment.BaseURL,
		Model:   cfg.Enrichment.Model,
		Logger:  logger,
	})
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	// Repositories
	vibeCache := vibecache.New(
		store,
		time.Duration(cfg.Cache.TTLDays)*24*time.Hour,
		metrics.VibeCacheTotal,
		logger,
	)
	spotRepo := spotrepo.New(store)
	if err := spotRepo.EnsureIndex(ctx, spotrepo.IndexParams{
		Dimensions:  cfg.Embedding.Dimensions,
		M:           cfg.Search.HNSWM,
		EFConstruct: cfg.Search.HNSWEFConstruct,
	}); err != nil {
		logger.Fatal("Failed to ensure spot index", zap.Error(err))
	}

	// Use case services
	enrichSvc := enrichuc.New(generator, logger).
		WithTimeout(time.Duration(cfg.Enrichment.TimeoutSec) * time.Second).
		WithMaxRetries(cfg.Enrichment.MaxRetries).
		WithBreakerThreshold(cfg.Enrichment.BreakerThreshold).
		WithConcurrency(cfg.Enrichment.Concurrency)

	recommendSvc := recommenduc.New(placesClient, enrichSvc, vibeCache, recommenduc.Config{
		PlacesAPIKey:     cfg.Places.APIKey,
		EnrichmentAPIKey: cfg.Enrichment.APIKey,
		RadiusKm:         cfg.Places.RadiusKm,
		ExpansionFactor:  cfg.Places.ExpansionFactor,
		MaxResults:       cfg.Places.MaxResults,
		MaxCandidates:    cfg.Enrichment.MaxVenues,
		PhotoBaseURL:     cfg.Places.BaseURL,
	}, logger)

	textsearchSvc := textsearchuc.New(embedder, spotRepo, textsearchuc.Config{
		TopK:              cfg.Search.TopK,
		MaxVectorDistance: cfg.Search.MaxVectorDistance,
		RadiusKm:          cfg.Search.RadiusKm,
		EmbedTimeout:      time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond,
	}, logger)

	healthSvc := healthuc.New(store, generator)

	// Router
	server := chiTransport.NewServer(recommendSvc, textsearchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Let in-flight fire-and-forget cache writes land before the store closes.
	recommendSvc.WaitForCacheWrites()

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
