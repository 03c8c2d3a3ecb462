package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/s1natex/taskmanager-api/internal/apperr"
	"github.com/s1natex/taskmanager-api/internal/auth"
	"github.com/s1natex/taskmanager-api/internal/config"
	"github.com/s1natex/taskmanager-api/internal/middleware"
	"github.com/s1natex/taskmanager-api/internal/ratelimit"
	"github.com/s1natex/taskmanager-api/internal/storage/sqlitedb"
	"github.com/s1natex/taskmanager-api/internal/tasks"
	"github.com/s1natex/taskmanager-api/internal/telemetry"
	"github.com/s1natex/taskmanager-api/internal/users"
)

const serviceName = "taskmanager-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.TracesExporter, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown", slog.String("error", err.Error()))
		}
	}()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return err
	}

	userRepo, taskRepo, closeStore, err := openStores(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	a := app{
		users:          users.NewService(userRepo, auth.NewPasswordHasher(cfg.BcryptCost), tokens),
		tasks:          tasks.NewService(taskRepo),
		tokens:         tokens,
		globalLimiter:  middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		corsOrigins:    cfg.CORSOrigins,
		requestTimeout: cfg.RequestTimeout,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			logger.Warn("redis_unavailable", slog.String("addr", cfg.RedisAddr), slog.String("error", err.Error()))
		}
		cancel()
		a.loginLimiter = ratelimit.NewRedisLimiter(rdb, ratelimit.DefaultPrefix, cfg.LoginRate, cfg.LoginBurst)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(a, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openStores picks SQLite when path is set and in-memory stores otherwise.
func openStores(ctx context.Context, path string, logger *slog.Logger) (users.Repository, tasks.Repository, func(), error) {
	if path == "" {
		logger.Info("store_selected", slog.String("store", "memory"))
		return users.NewInMemoryRepo(), tasks.NewInMemoryRepo(), func() {}, nil
	}

	dsn, err := sqlitedb.FileDSN(path)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := sqlitedb.Open(dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := sqlitedb.ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	logger.Info("store_selected", slog.String("store", "sqlite"), slog.String("path", path))
	return users.NewSQLiteRepo(db), tasks.NewSQLiteRepo(db), func() { _ = db.Close() }, nil
}

// app holds what the router needs. A nil loginLimiter disables the login throttle.
type app struct {
	users          *users.Service
	tasks          *tasks.Service
	tokens         middleware.TokenVerifier
	loginLimiter   middleware.KeyedLimiter
	globalLimiter  *rate.Limiter
	corsOrigins    []string
	requestTimeout time.Duration
}

// newRouter wires the public endpoints, the auth and task APIs, and the middleware stack
func newRouter(a app, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	// Tracing and metrics wrap the recoverer so panics show up as 500s.
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	if a.requestTimeout > 0 {
		r.Use(chimw.Timeout(a.requestTimeout))
	}

	origins := a.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RateLimitMiddleware(a.globalLimiter))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteMessage(w, http.StatusNotFound, "Route not found")
	})

	// ---- Routes ----
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteMessage(w, http.StatusOK, "Task Manager API is running")
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", middleware.MetricsHandler())

	gate := middleware.AuthMiddleware(middleware.AuthConfig{
		Verifier: a.tokens,
		Logger:   logger,
	})

	r.Route("/api/auth", func(r chi.Router) {
		if a.loginLimiter != nil {
			r.Use(middleware.KeyedRateLimitMiddleware(a.loginLimiter, nil, logger))
		}
		users.RegisterAuthRoutes(r, a.users, logger)
	})
	r.Route("/api/user", func(r chi.Router) {
		r.Use(gate)
		users.RegisterProfileRoutes(r, a.users, logger)
	})
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(gate)
		tasks.RegisterRoutes(r, a.tasks, logger)
	})

	return r
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
