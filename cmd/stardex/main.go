package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stardex-io/stardex/internal/catalog"
	"github.com/stardex-io/stardex/internal/config"
	logpkg "github.com/stardex-io/stardex/internal/logger"
	"github.com/stardex-io/stardex/internal/metrics"
	"github.com/stardex-io/stardex/internal/ratelimit"
	"github.com/stardex-io/stardex/internal/spatial"
	chiTransport "github.com/stardex-io/stardex/internal/transport/chi"
	healthuc "github.com/stardex-io/stardex/internal/usecase/health"
	systemsuc "github.com/stardex-io/stardex/internal/usecase/systems"
	typenamesuc "github.com/stardex-io/stardex/internal/usecase/typenames"
	"github.com/stardex-io/stardex/internal/version"
)

func main() {
	// Absent .env is the normal case outside local development.
	_ = godotenv.Load()

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

	logger.Info("Starting stardex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("data_dir", cfg.Data.Dir),
	)

	// Catalog store. An unreachable catalog at startup is fatal; after
	// startup only the health endpoint reports on it.
	store, err := catalog.Open(catalog.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open catalog store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Catalog not ready", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("Catalog migration failed", zap.Error(err))
	}
	logger.Info("Connected to catalog")

	// Register snapshot metrics explicitly (no init())
	metrics.RegisterSpatialMetrics()

	// Spatial snapshot: seed-aware catalog adapter feeding the manager.
	adapter := catalog.NewAdapter(store, cfg.Data.Dir)

	cachePath := ""
	if cfg.Cache.Enabled {
		cachePath = cfg.Cache.Path
	}
	manager := spatial.NewManager(adapter, spatial.ManagerConfig{CachePath: cachePath}, logger)
	if err := manager.Start(ctx); err != nil {
		logger.Fatal("Failed to publish initial snapshot", zap.Error(err))
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Cache.Watch {
		debounce := time.Duration(cfg.Cache.DebounceSec) * time.Second
		go func() {
			if err := manager.Watch(watchCtx, debounce); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Export watcher stopped", zap.Error(err))
			}
		}()
		logger.Info("Watching source exports", zap.Duration("debounce", debounce))
	}

	// Rate limiters. Nil means the tier is disabled.
	var generalLimiter, searchLimiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Backend {
		case "redis":
			client, err := ratelimit.OpenRedis(ratelimit.RedisConfig{
				Addrs:    cfg.RateLimit.Addrs,
				Password: cfg.RateLimit.Password,
			})
			if err != nil {
				logger.Fatal("Failed to connect rate limit backend", zap.Error(err))
			}
			defer client.Close()
			generalLimiter = ratelimit.NewRedis(client, cfg.RateLimit.GeneralRPS, time.Second, logger)
			searchLimiter = ratelimit.NewRedis(client, cfg.RateLimit.SearchRPS, time.Second, logger)
		default:
			general := ratelimit.NewMemory(cfg.RateLimit.GeneralRPS, cfg.RateLimit.Burst)
			defer general.Close()
			search := ratelimit.NewMemory(cfg.RateLimit.SearchRPS, cfg.RateLimit.Burst)
			defer search.Close()
			generalLimiter = general
			searchLimiter = search
		}
		logger.Info("Rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("general_rps", cfg.RateLimit.GeneralRPS),
			zap.Int("search_rps", cfg.RateLimit.SearchRPS),
		)
	}

	// Use case services
	systemsSvc := systemsuc.New(manager, store, systemsuc.Limits{
		AutocompleteDefault: cfg.Search.AutocompleteDefaultLimit,
		AutocompleteMax:     cfg.Search.AutocompleteMaxLimit,
	})
	typeNamesSvc := typenamesuc.New(store, typenamesuc.Limits{
		Default: cfg.Search.TypeNameDefaultLimit,
		Max:     cfg.Search.TypeNameMaxLimit,
	})
	healthSvc := healthuc.New(store, manager)

	server := chiTransport.NewServer(systemsSvc, typeNamesSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	if cfg.RateLimit.TrustProxy {
		// RealIP rewrites RemoteAddr from forwarding headers; only safe
		// behind a trusted proxy.
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Handler(chiTransport.RouterConfig{
		PathPrefix:     cfg.HTTP.PathPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		General:        generalLimiter,
		Search:         searchLimiter,
		TrustProxy:     cfg.RateLimit.TrustProxy,
		RequestTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}))

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
	stopWatch()

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
					_ = json.NewEncoder(w).Encode(map[string]map[string]string{
						"error": {
							"code":    "internal_error",
							"message": "internal error",
						},
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
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
