package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/dgallion1/eduparse/internal/api"
	"github.com/dgallion1/eduparse/internal/config"
	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/extract"
	"github.com/dgallion1/eduparse/internal/lookup"
	"github.com/dgallion1/eduparse/internal/observe"
)

func newLogger(format string) *slog.Logger {
	if format == "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogFormat)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	columns, err := cfg.StudentColumns()
	if err != nil {
		log.Error("load column map", "file", cfg.ColumnMapFile, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry.
	var (
		inst     *observe.Instruments
		shutdown = func(context.Context) error { return nil }
	)
	if cfg.OTelEnabled {
		inst, shutdown, err = observe.Init(ctx, "eduparse")
	} else {
		inst, err = observe.New()
	}
	if err != nil {
		log.Error("init telemetry", "error", err)
		os.Exit(1)
	}

	// Directory lookups.
	var resolver lookup.Resolver = lookup.NewClient(cfg.DirectoryURL, lookup.ClientOptions{
		Timeout:     cfg.DirectoryTimeout,
		InsecureTLS: cfg.DirectoryInsecureTLS,
		Logger:      log,
		Retries:     cfg.LookupRetries,
	})
	if cfg.LookupCacheTTL > 0 {
		resolver = lookup.NewCache(resolver, cfg.LookupCacheTTL)
	}

	stats := extract.NewStats(cfg.StatsWindow)
	engine := extract.NewEngine(extract.Options{
		Decoder:     &document.Decoder{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		Resolver:    resolver,
		Columns:     &columns,
		Logger:      log,
		Instruments: inst,
		Stats:       stats,
	})

	srv := api.NewServer(engine, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	log.Info("starting eduparse",
		"port", cfg.Port,
		"files_dir", cfg.FilesDirectory,
		"directory_url", cfg.DirectoryURL,
		"lookup_cache_ttl", cfg.LookupCacheTTL,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
