package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libraryapi/internal/book"
	"libraryapi/internal/checkout"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/migrate"
	"libraryapi/internal/platform/database"
	"libraryapi/internal/platform/logging"

	"github.com/jackc/pgx/v5/stdlib"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 15 * time.Second
	readyTimeout    = 500 * time.Millisecond
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	pool, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		sqlDB := stdlib.OpenDBFromPool(pool)
		err := migrate.New(sqlDB, migrate.WithDir(cfg.MigrationsDir), migrate.WithLogger(logger)).Up(ctx)
		_ = sqlDB.Close()
		if err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	bookRepo := book.NewPostgresRepo(pool, cfg.Database.Timeout, logger)
	bookHandler := book.NewHTTPHandler(book.NewService(bookRepo), logger)
	checkoutRepo := checkout.NewPostgresRepo(pool, cfg.Database.Timeout, logger)
	checkoutHandler := checkout.NewHTTPHandler(checkout.NewService(checkoutRepo), logger)

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	router := newRouter(bookHandler, checkoutHandler, pool, cfg.JWTSecret)
	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.Env == config.Production),
		httpx.CORSMiddleware(cfg.AllowedOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
		rateLimiter.Middleware,
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "env", cfg.Env)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(books *book.HTTPHandler, checkouts *checkout.HTTPHandler, db pinger, jwtSecret string) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	requireAuth := httpx.AuthMiddleware(jwtSecret)
	books.Routes(router, requireAuth)
	checkouts.Routes(router, requireAuth)
	return router
}
