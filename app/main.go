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

	"github.com/planetfeed/planetfeed/app/api"
	"github.com/planetfeed/planetfeed/app/cfg"
	"github.com/planetfeed/planetfeed/app/feed"
	"github.com/planetfeed/planetfeed/app/fetch"
	"github.com/planetfeed/planetfeed/app/notify"
	"github.com/planetfeed/planetfeed/app/sources"
	"github.com/planetfeed/planetfeed/app/store"
	"github.com/planetfeed/planetfeed/app/tasks"
)

var slogLevel = new(slog.LevelVar)

func init() {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slogLevel.Set(slog.LevelDebug)
	}

	slog.Info("Starting planetfeed", "version", appCfg.Version)

	srcs, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load feed sources", "file", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded feed sources", "count", len(srcs))

	entryStore, err := store.NewStore(appCfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize entry store", "error", err)
		os.Exit(1)
	}

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	fetcher := fetch.NewFetcher(appCfg.UserAgent, fetchTimeout)
	parser := feed.NewParser()
	normalizer := feed.NewNormalizer(feed.NewSanitizer())

	var enricher *feed.Enricher
	if appCfg.EnrichContent {
		enricher = feed.NewEnricher(appCfg.UserAgent, fetchTimeout)
	}

	channel := feed.ChannelInfo{
		Title:       appCfg.SiteTitle,
		Link:        appCfg.SiteLink,
		Description: appCfg.SiteDescription,
		Version:     appCfg.Version,
	}

	runner := tasks.NewRunner(srcs, fetcher, parser, normalizer, enricher,
		entryStore, channel, appCfg.OutputFile)

	var newNotify func() *tasks.NotifyTask
	if appCfg.WebhookURL != "" {
		notifier := notify.NewNotifier(appCfg.WebhookURL, appCfg.NotifyMaxPerRun,
			time.Duration(appCfg.NotifyDelay)*time.Second)
		newNotify = func() *tasks.NotifyTask {
			return tasks.NewNotifyTask(notifier, appCfg.OutputFile, appCfg.LedgerFile)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		slog.Error("Aggregation run failed", "error", err)
		os.Exit(1)
	}

	if newNotify != nil {
		if err := newNotify().Execute(ctx); err != nil {
			slog.Error("Notification stage failed", "error", err)
		}
	}

	if !appCfg.Serve {
		return
	}

	serve(ctx, appCfg, entryStore, runner, newNotify)
}

// serve keeps the process running: periodic refresh runs plus an HTTP
// server exposing the rendered feed.
func serve(ctx context.Context, appCfg *cfg.Cfg, entryStore *store.Store,
	runner *tasks.Runner, newNotify func() *tasks.NotifyTask) {

	scheduler := tasks.NewScheduler(runner, newNotify,
		time.Duration(appCfg.SchedulerInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(entryStore, appCfg.OutputFile, appCfg.Version)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
