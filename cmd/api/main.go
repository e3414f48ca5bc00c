// Package main is the entry point for the storefront API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/basket"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/config"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/handler"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/middleware"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/pricing"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/proxy"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/repo"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/service"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/upstream"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/migrations"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/spec"
)

// purgeInterval is how often the Postgres janitor drops expired snapshots.
const purgeInterval = 10 * time.Minute

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Snapshot store ---------------------------------------------------
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open snapshot store", "store", cfg.SnapshotStore, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("snapshot store ready", "store", cfg.SnapshotStore)

	// --- Services ---------------------------------------------------------
	policy, err := pricing.PolicyByName(cfg.PriceRounding)
	if err != nil {
		slog.Error("invalid price rounding", "error", err)
		os.Exit(1)
	}
	backendClient := proxy.NewClient(cfg.ProxyTimeout)
	backend := upstream.NewClient(cfg.BackendAPIURL, backendClient, logger)

	baskets := service.NewBasketService(store, policy, logger)
	exports := service.NewExportService(backend)
	forwarder := proxy.NewForwarder(proxy.Options{
		BaseURL:      cfg.BackendAPIURL,
		TokenCookie:  cfg.TokenCookie,
		SecureCookie: cfg.CookieSecure,
		Client:       backendClient,
		Logger:       logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srvHandlers := handler.NewServer(baskets, exports, forwarder, handler.Options{
		TokenCookie:   cfg.TokenCookie,
		SecureCookies: cfg.CookieSecure,
		Session:       middleware.NewSessionHandler(cfg.SessionCookie, cfg.CookieSecure),
		OpenAPI:       spec.OpenAPI,
		Logger:        logger,
	})
	r.Mount("/", srvHandlers.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is left generous: full-resource exports page through the backend.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore builds the snapshot store selected by cfg. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (basket.Store, func(), error) {
	switch cfg.SnapshotStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return repo.NewRedisSnapshotRepo(client, cfg.SnapshotTTL), func() { client.Close() }, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		snapshots := repo.NewSnapshotRepo(pool)
		if cfg.SnapshotTTL > 0 {
			go purgeExpired(ctx, snapshots, cfg.SnapshotTTL, logger)
		}
		return snapshots, pool.Close, nil

	default:
		return repo.NewMemorySnapshotRepo(), func() {}, nil
	}
}

// migrate applies the embedded goose migrations through a database/sql
// handle sharing the pool's connections.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	slog.Info("migrations applied", "count", len(results))
	return nil
}

// purgeExpired drops snapshots idle for longer than ttl until ctx is done.
func purgeExpired(ctx context.Context, snapshots *repo.PGSnapshotRepo, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := snapshots.PurgeOlderThan(ctx, time.Now().Add(-ttl))
			if err != nil {
				logger.WarnContext(ctx, "snapshot purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged expired snapshots", "count", n)
			}
		}
	}
}
