package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/itwrites/BlogViraliy-sub004/internal/api"
	"github.com/itwrites/BlogViraliy-sub004/internal/batch"
	"github.com/itwrites/BlogViraliy-sub004/internal/config"
	"github.com/itwrites/BlogViraliy-sub004/internal/generator"
	"github.com/itwrites/BlogViraliy-sub004/internal/notify"
	"github.com/itwrites/BlogViraliy-sub004/internal/planner"
	"github.com/itwrites/BlogViraliy-sub004/internal/rss"
	"github.com/itwrites/BlogViraliy-sub004/internal/scheduler"
	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

func main() {
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

	gen := generator.NewOpenAI(cfg.OpenAIAPIKey)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("create telegram notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	pl := planner.New(store, gen, notifier, log)

	sched := scheduler.New(store, gen, notifier, log)
	sched.SetTickInterval(cfg.SchedulerInterval)

	poller := rss.New(store, gen, log)
	poller.SetTickInterval(cfg.RSSInterval)

	runner := batch.New(store, gen, notifier, cfg.BatchWorkers, log)

	srv := api.New(store, pl, runner, cfg.APIKeys, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting engine", "addr", cfg.APIAddr, "batch_workers", cfg.BatchWorkers)

	go sched.Run(ctx)
	go poller.Run(ctx)
	go runner.Run(ctx)

	if err := srv.Run(ctx, cfg.APIAddr); err != nil {
		log.Error("http server", "error", err)
	}

	log.Info("engine stopped")
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
