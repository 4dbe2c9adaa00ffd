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

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/corpus"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/ingest"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/semsearch/internal/repository/document"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	"github.com/kailas-cloud/semsearch/internal/repository/indexmeta"
	qrelsrepo "github.com/kailas-cloud/semsearch/internal/repository/qrels"
	queriesrepo "github.com/kailas-cloud/semsearch/internal/repository/queries"
	chiTransport "github.com/kailas-cloud/semsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	indexuc "github.com/kailas-cloud/semsearch/internal/usecase/index"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	statusuc "github.com/kailas-cloud/semsearch/internal/usecase/status"
	"github.com/kailas-cloud/semsearch/internal/version"
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

	logger.Info("Starting semsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
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

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Embedder chains. The query side carries the LRU cache; documents are
	// embedded once per build and would only pollute it.
	queryCache := embcache.New(newProviderEmbedder(cfg.Embedding, logger),
		cfg.Cache.Capacity, metrics.EmbeddingCacheTotal, logger)
	queryEmbedder := buildQueryEmbedder(cfg.Embedding, queryCache, logger)
	docEmbedder := buildDocumentEmbedder(cfg.Embedding, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Serving state and persistence
	corpusStore := corpus.NewStore()
	judgments := corpus.NewJudgments()
	docRepo := documentrepo.New(store, cfg.Dataset.BatchSize)
	qrelRepo := qrelsrepo.New(store)
	queryRepo := queriesrepo.New(store)
	metaRepo := indexmeta.New(store)

	if err := restoreSnapshot(ctx, docRepo, qrelRepo, metaRepo, corpusStore, judgments, logger); err != nil {
		logger.Fatal("Failed to restore persisted index", zap.Error(err))
	}

	dataset := ingest.New(cfg.Dataset.Path, cfg.Dataset.DocsFile,
		cfg.Dataset.QueriesFile, cfg.Dataset.QrelsFile, logger)

	// Use case services
	searchSvc := searchuc.New(corpusStore, judgments, queryEmbedder, cfg.Search.TopK, cfg.Search.EvalK)
	indexSvc := indexuc.New(dataset, docEmbedder, docRepo, qrelRepo,
		corpusStore, judgments, queryCache, cfg.Dataset.BatchSize).
		WithMeta(metaRepo).
		WithQueryArchive(dataset, queryRepo)
	statusSvc := statusuc.New(corpusStore, judgments)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), corpusStore)

	server := chiTransport.NewServer(searchSvc, indexSvc, statusSvc, healthSvc, logger)

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

	logger.Info("Server stopped gracefully")
}

// restoreSnapshot loads the persisted corpus and judgments so an index built
// before a restart keeps serving without a rebuild.
func restoreSnapshot(
	ctx context.Context,
	docRepo *documentrepo.Repo,
	qrelRepo *qrelsrepo.Repo,
	metaRepo *indexmeta.Repo,
	corpusStore *corpus.Store,
	judgments *corpus.Judgments,
	logger *zap.Logger,
) error {
	docs, err := docRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		logger.Info("No persisted index found, starting empty")
		return nil
	}
	if err := corpusStore.Replace(docs); err != nil {
		return fmt.Errorf("restore corpus: %w", err)
	}

	records, err := qrelRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load judgments: %w", err)
	}
	judgments.Replace(records)

	metrics.IndexedDocuments.Set(float64(len(docs)))

	fields := []zap.Field{
		zap.Int("documents", len(docs)),
		zap.Int("judgments", len(records)),
	}
	if meta, ok, metaErr := metaRepo.Load(ctx); metaErr == nil && ok {
		fields = append(fields, zap.Time("built_at", meta.BuiltAt))
	}
	logger.Info("Restored persisted index", fields...)
	return nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildQueryEmbedder assembles the query chain:
// OpenAI -> LRU cache -> Instrumented -> Instruction.
func buildQueryEmbedder(
	cfg config.EmbeddingConfig,
	cache *embcache.CachedEmbedder,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		cache, cfg.Provider, cfg.Model, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

// buildDocumentEmbedder assembles the index-build chain, uncached:
// OpenAI -> Instrumented -> Instruction. The index build embeds documents in
// batches, so the chain is exposed as a domain.BatchEmbedder.
func buildDocumentEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.BatchEmbedder {
	base := newProviderEmbedder(cfg, logger)

	embedder := embeddinguc.NewInstrumentedEmbedder(
		base, cfg.Provider, cfg.Model, logger,
	)

	if cfg.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.DocumentInstruction)
	}
	return embedder
}

func newProviderEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) *openaiEmb.Embedder {
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
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
