package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pathgenius/pathgenius/internal/assessment"
	"github.com/pathgenius/pathgenius/internal/events"
	"github.com/pathgenius/pathgenius/internal/generation"
	"github.com/pathgenius/pathgenius/internal/platform/cache"
	"github.com/pathgenius/pathgenius/internal/platform/config"
	"github.com/pathgenius/pathgenius/internal/platform/database"
	"github.com/pathgenius/pathgenius/internal/server"
	"github.com/pathgenius/pathgenius/internal/session"
	"github.com/pathgenius/pathgenius/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Document store: Postgres when configured, in-memory otherwise.
	var docs store.Store
	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pgStore, err := store.NewPostgresStore(db.Pool)
		if err != nil {
			slog.Error("failed to create document store", "error", err)
			os.Exit(1)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure store schema", "error", err)
			os.Exit(1)
		}
		docs = pgStore
	} else {
		slog.Warn("no database configured, using in-memory document store")
		docs = store.NewMemoryStore()
	}

	var c *cache.Cache
	var marker session.InFlightMarker
	if cfg.Cache.URL != "" {
		c, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		marker = c
	}

	gen := generation.NewClient(cfg.Generation.URL,
		generation.WithHTTPClient(&http.Client{Timeout: cfg.Generation.Timeout}),
		generation.WithRetryPolicy(generation.RetryPolicy{
			MaxAttempts: cfg.Generation.RetryAttempts,
			Backoff:     generation.LinearBackoff(time.Duration(cfg.Generation.RetryBackoffMS) * time.Millisecond),
			Retryable:   generation.IsTransient,
		}),
	)

	if err := gen.Health(ctx); err != nil {
		slog.Warn("generation backend unreachable at startup", "error", err)
	}

	hub := events.NewHub()
	sessions := session.NewRegistry(session.Config{
		Store:     docs,
		Generator: gen,
		Hub:       hub,
		Marker:    marker,
	})

	bank := assessment.NewBank()
	if cfg.Assessment.BankDir != "" {
		if err := bank.LoadDir(cfg.Assessment.BankDir); err != nil {
			slog.Warn("failed to load assessment bank, using built-in presets",
				"dir", cfg.Assessment.BankDir, "error", err)
		}
	}
	assessments := assessment.NewService(gen, bank)

	srvCfg := server.Config{
		Store:       docs,
		Generator:   gen,
		Sessions:    sessions,
		Assessments: assessments,
		Hub:         hub,
	}
	if db != nil {
		srvCfg.DB = db
	}
	if c != nil {
		srvCfg.Cache = c
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.New(srvCfg).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Let fire-and-forget backfill writes land before exiting.
	sessions.Drain()
}
