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

	"github.com/lysyi3m/rss-sentry/app/api"
	"github.com/lysyi3m/rss-sentry/app/cfg"
	"github.com/lysyi3m/rss-sentry/app/database"
	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/guard"
	"github.com/lysyi3m/rss-sentry/app/proxy"
	"github.com/lysyi3m/rss-sentry/app/syncer"
	"github.com/lysyi3m/rss-sentry/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Sentry", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)

	cache, err := guard.NewResolveCache(appCfg.DNSCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create DNS cache: %w", err)
	}
	g := guard.NewGuard(nil, cache, appCfg.DNSCacheTTL)

	// Feed URLs are chosen by the reader and may point at the intranet.
	// Images come from feed authors and get the strict client.
	fetcher := feed.NewFetcher(g.NewFeedClient(appCfg.FetchTimeout), feed.NewParser(), appCfg.UserAgent)
	orchestrator := syncer.NewOrchestrator(g, fetcher, articleSyncStore{articleRepo, feedRepo}, appCfg.FetchTimeout, appCfg.SyncConcurrency)
	imageProxy := proxy.NewImageProxy(g, g.NewStrictClient(appCfg.FetchTimeout), appCfg.UserAgent, appCfg.ImageMaxBytes)

	var seeds tasks.SeedSource
	if appCfg.FeedsDir != "" {
		seedLoader := feed.NewSeedLoader(appCfg.FeedsDir)
		if err := seedLoader.Run(); err != nil {
			return fmt.Errorf("failed to load feed seeds: %w", err)
		}
		slog.Info("Feed seeds loaded", "dir", appCfg.FeedsDir, "count", seedLoader.GetSeedCount())
		seeds = seedLoader
	}

	scheduler := tasks.NewScheduler(tasks.Settings{
		SyncInterval:    appCfg.SyncInterval,
		CleanupInterval: appCfg.DNSCleanupInterval,
		WorkerCount:     appCfg.WorkerCount,
	}, seeds, feedRepo, g, orchestrator)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(feedRepo, articleRepo, g, orchestrator, imageProxy)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	// Batch sync streams for as long as the slowest feed takes.
	writeTimeout := appCfg.FetchTimeout + time.Minute

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("RSS Sentry shutdown complete")

	return runErr
}

// articleSyncStore joins the two repositories into the storage the
// orchestrator needs.
type articleSyncStore struct {
	*database.ArticleRepository
	*database.FeedRepository
}
