package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PREETHAM1590/waste-wise/internal/api"
	"github.com/PREETHAM1590/waste-wise/internal/classifier"
	"github.com/PREETHAM1590/waste-wise/internal/config"
	"github.com/PREETHAM1590/waste-wise/internal/metrics"
	"github.com/PREETHAM1590/waste-wise/internal/services/assistant"
	"github.com/PREETHAM1590/waste-wise/internal/services/challenges"
	"github.com/PREETHAM1590/waste-wise/internal/services/ledger"
	"github.com/PREETHAM1590/waste-wise/internal/services/marketplace"
	"github.com/PREETHAM1590/waste-wise/internal/services/stats"
	"github.com/PREETHAM1590/waste-wise/internal/services/users"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/PREETHAM1590/waste-wise/internal/storage/memory"
	"github.com/PREETHAM1590/waste-wise/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting application",
		slog.String("env", cfg.Env),
		slog.String("host", cfg.HTTP.Host),
		slog.Int("port", cfg.HTTP.Port),
		slog.String("storage", cfg.Storage.Driver),
	)

	store, err := openStorage(cfg)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var cls classifier.Classifier
	classifyTimeout := cfg.Classifier.TotalTimeout
	if cfg.Classifier.URL != "" {
		httpCls := classifier.NewHTTP(cfg.Classifier.URL, cfg.Classifier.Timeout, cfg.Classifier.MaxRetries,
			classifier.WithBackoff(cfg.Classifier.Backoff),
		)
		if classifyTimeout == 0 {
			classifyTimeout = httpCls.Budget()
		}
		cls = httpCls
	} else {
		log.Warn("No classifier url configured, using stub classifier")
		cls = classifier.NewStub()
	}

	m := metrics.New()

	engine := ledger.New(log, store, cls, ledger.NewPointsPolicy(cfg.Rewards.Seed),
		ledger.WithMetrics(m),
		ledger.WithClassifyTimeout(classifyTimeout),
	)

	apiServer := api.New(cfg, log, api.Services{
		Users:       users.New(log, store, nil),
		Ledger:      engine,
		Stats:       stats.New(log, store, cfg.Leaderboard.MaxLimit, nil),
		Challenges:  challenges.New(log, store, engine, nil, challenges.WithMaxRewardPoints(cfg.Challenges.MaxRewardPoints)),
		Marketplace: marketplace.New(log, store, engine, nil),
		Assistant:   assistant.New(nil),
	}, m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		apiServer.MustStart()
	}()

	<-sigChan
	log.Info("Got signal to shutdown server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Stopping server error", "error", err)
	}
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		s, err := postgres.New(cfg.Postgres.URL())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
