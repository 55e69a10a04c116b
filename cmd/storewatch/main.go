package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storewatch/internal/api"
	"storewatch/internal/bot"
	"storewatch/internal/config"
	"storewatch/internal/fetcher"
	"storewatch/internal/reconcile"
	"storewatch/internal/scheduler"
	"storewatch/internal/scraper"
	"storewatch/internal/storage"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	source, err := newSource(cfg, log)
	if err != nil {
		log.Error("create listing source", "kind", cfg.SourceKind, "error", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	engine := reconcile.New(store, source, b, log)
	b.SetRunner(engine)

	sched := scheduler.New(engine, cfg.ScrapeInterval, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(store, engine, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting storewatch", "source", cfg.SourceKind, "http_addr", cfg.HTTPAddr, "interval", cfg.ScrapeInterval)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown", "error", err)
		}
	}()

	b.Run(ctx)
	wg.Wait()

	log.Info("storewatch stopped")
}

func newSource(cfg *config.Config, log *slog.Logger) (reconcile.Source, error) {
	f := fetcher.New(
		&http.Client{},
		fetcher.WithCookie(cfg.SourceCookie),
		fetcher.WithTimeout(cfg.RequestTimeout),
		fetcher.WithRateLimit(cfg.RequestsPerSecond),
	)

	switch cfg.SourceKind {
	case config.SourceStorefront:
		return scraper.NewStorefront(f, scraper.StorefrontConfig{
			BaseURL:   cfg.StorefrontBaseURL,
			SearchURL: cfg.StorefrontSearchURL,
			MaxPages:  cfg.MaxPages,
		}, log)
	case config.SourceFeed:
		return scraper.NewFeed(f, cfg.FeedURL, log)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
