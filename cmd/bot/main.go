package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"theme_bot/internal/bot"
	"theme_bot/internal/config"
	"theme_bot/internal/digest"
	"theme_bot/internal/ingest"
	"theme_bot/internal/keyword"
	"theme_bot/internal/scheduler"
	"theme_bot/internal/storage"
	"theme_bot/internal/theme"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	for _, dir := range []string{filepath.Dir(cfg.DatabasePath), cfg.MediaDir} {
		if dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := keyword.New(store, log)

	b, err := bot.New(cfg.TelegramBotToken, store, engine, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	dispatcher := digest.New(store, b, cfg.ModerationChatID, cfg.DispatchGrace, cfg.SendInterval, log)
	sched := scheduler.New(ctx, dispatcher, log)
	defer sched.Shutdown()

	registry := theme.New(store, sched, log)
	b.SetRegistry(registry)
	b.SetAggregator(ingest.New(store, engine, b, cfg.ModerationChatID, log))

	themes, err := store.ListThemes(ctx)
	if err != nil {
		log.Error("list themes", "error", err)
		os.Exit(1)
	}
	if err := sched.Seed(themes); err != nil {
		log.Error("seed scheduler", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	log.Info("starting bot", "jobs", sched.Len())

	b.Run(ctx)

	log.Info("bot stopped")
}

func serveMetrics(addr string, log *slog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("metrics server", "error", err)
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
