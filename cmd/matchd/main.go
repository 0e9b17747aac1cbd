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

	"github.com/kailas-cloud/matchd/internal/config"
	dbRedis "github.com/kailas-cloud/matchd/internal/db/redis"
	logpkg "github.com/kailas-cloud/matchd/internal/logger"
	"github.com/kailas-cloud/matchd/internal/metrics"
	"github.com/kailas-cloud/matchd/internal/repository/embeddings"
	"github.com/kailas-cloud/matchd/internal/repository/entities"
	"github.com/kailas-cloud/matchd/internal/repository/matchcache"
	"github.com/kailas-cloud/matchd/internal/repository/tutors"
	chiTransport "github.com/kailas-cloud/matchd/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/matchd/internal/transport/openai"
	healthuc "github.com/kailas-cloud/matchd/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/matchd/internal/usecase/indexer"
	matchuc "github.com/kailas-cloud/matchd/internal/usecase/match"
	rankinguc "github.com/kailas-cloud/matchd/internal/usecase/ranking"
	reranksvc "github.com/kailas-cloud/matchd/internal/usecase/rerank"
	retrieveuc "github.com/kailas-cloud/matchd/internal/usecase/retrieve"
	"github.com/kailas-cloud/matchd/internal/version"
)

func main() {
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

	logger.Info("Starting matchd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("rerank_enabled", cfg.Rerank.Enabled),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register matching metrics explicitly (no init())
	metrics.RegisterMatchingMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	prefix := cfg.Storage.KeyPrefix
	embStore := embeddings.New(store, embedder, prefix, logger)
	tutorRepo := tutors.New(store, prefix, cfg.Embedding.Dimensions).
		WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	entityRepo := entities.New(store, prefix)
	resultCache := matchcache.New(store, prefix, logger)

	if err := tutorRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure tutor index", zap.Error(err))
	}

	// Ranking: load the artifact if configured, otherwise run on the heuristic.
	modelLoader := rankinguc.NewLoader(cfg.Ranking.ArtifactPath, logger)
	if err := modelLoader.Load(); err != nil {
		logger.Warn("Ranking model not loaded, serving heuristic scores", zap.Error(err))
	}
	rankSvc, err := rankinguc.NewService(modelLoader, cfg.Ranking.PoolSize, logger)
	if err != nil {
		logger.Fatal("Failed to create ranking service", zap.Error(err))
	}
	defer rankSvc.Close()

	retrieveSvc := retrieveuc.NewService(embStore, tutorRepo, logger)

	reranker := openaiTransport.NewReranker(&openaiTransport.RerankerConfig{
		APIKey:  cfg.Rerank.APIKey,
		BaseURL: cfg.Rerank.BaseURL,
		Model:   cfg.Rerank.Model,
		Logger:  logger,
	})
	rerankSvc := reranksvc.NewService(reranker, reranksvc.Policy{
		MaxAttempts:    cfg.Rerank.MaxAttempts,
		AttemptTimeout: time.Duration(cfg.Rerank.AttemptMillis) * time.Millisecond,
		BackoffBase:    time.Duration(cfg.Rerank.BackoffMillis) * time.Millisecond,
		TotalBudget:    time.Duration(cfg.Rerank.BudgetMillis) * time.Millisecond,
	}, logger)

	matchSvc := matchuc.NewService(
		entityRepo, entityRepo, retrieveSvc, rankSvc, rerankSvc, resultCache,
		matchuc.Options{
			CandidateLimit: cfg.Matching.CandidateLimit,
			MaxTopK:        cfg.Matching.MaxTopK,
			ResultTTL:      time.Duration(cfg.Matching.ResultTTLSec) * time.Second,
			RerankEnabled:  cfg.Rerank.Enabled,
			OversampleMult: cfg.Rerank.OversampleMult,
		},
		logger,
	)

	indexerSvc := indexeruc.NewService(embStore, tutorRepo, logger)
	healthSvc := healthuc.New(store, embedder, rankSvc)

	server := chiTransport.NewServer(matchSvc, indexerSvc, modelLoader, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
