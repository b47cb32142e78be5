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

	"jobbot/internal/bot"
	"jobbot/internal/config"
	"jobbot/internal/digest"
	"jobbot/internal/profile"
	"jobbot/internal/ratelimit"
	"jobbot/internal/search"
	"jobbot/internal/storage"
	"jobbot/internal/suggest"
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

	limiter := ratelimit.New()
	searchClient := search.NewClient(http.DefaultClient, cfg.JobsAPIEndpoint,
		limiter, cfg.RateLimitMax, cfg.RateLimitWindow, log)
	suggestClient := suggest.New(http.DefaultClient, cfg.SuggestEndpoint,
		cfg.SuggestAPIKey, cfg.SuggestModel, log)

	prof := profile.New(store, suggestClient, profile.Params{
		TopK:              cfg.TopK,
		MaxManualKeywords: cfg.MaxManualKeywords,
		Decay:             cfg.Decay,
		LikeBoost:         cfg.LikeBoost,
		DislikePenalty:    cfg.DislikePenalty,
		NegativePromoteAt: cfg.NegativePromoteAt,
		NewPositiveQuota:  cfg.NewPositiveQuota,
		NewNegativeQuota:  cfg.NewNegativeQuota,
		ExcludeRecentDays: cfg.ExcludeRecentDays,
	}, log)

	retriever := search.NewRetriever(store, searchClient, cfg.MaxKeywordRetries, log)

	b, err := bot.New(cfg.TelegramBotToken, store, prof, retriever, searchClient, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := digest.New(store, retriever, prof, b, cfg.DigestTickInterval, cfg.DailyCount, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot")

	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Error("digest scheduler", "error", err)
		}
	}()

	b.Run(ctx)

	log.Info("bot stopped")
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
