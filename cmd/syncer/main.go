package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"karakeep_sync/internal/config"
	"karakeep_sync/internal/karakeep"
	"karakeep_sync/internal/publisher"
	"karakeep_sync/internal/registry"
	"karakeep_sync/internal/scheduler"
	"karakeep_sync/internal/service"
	"karakeep_sync/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, KS_* variables are always read)")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sink := karakeep.NewClient(karakeep.Config{
		URL:             cfg.Karakeep.URL,
		Token:           cfg.Karakeep.Auth,
		ListDescription: cfg.Karakeep.ListDescription,
		ListIcon:        cfg.Karakeep.ListIcon,
		Timeout:         cfg.HTTP.Timeout,
	})
	if err := sink.HealthCheck(ctx); err != nil {
		logger.Error("karakeep is not reachable", "url", cfg.Karakeep.URL, "error", err)
		os.Exit(1)
	}
	logger.Info("connected to karakeep", "url", cfg.Karakeep.URL)

	var (
		syncState service.SyncStateStore
		runs      service.RunStore
		txManager service.TransactionManager
		pub       service.Publisher
	)

	if cfg.Database.Enabled() {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database", "host", cfg.Database.Host)

		syncState = postgres.NewSyncStateStore(db)
		runs = postgres.NewRunStore(db)
		txManager = postgres.NewTransactionManager(db)
	}

	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	syncService := service.NewSyncService(sink, syncState, runs, txManager, pub, logger)

	sources := registry.Activated(registry.Sources(cfg, logger))
	for _, src := range sources {
		logger.Info("source activated", "source", src.ID(), "list", src.ListName())
	}

	sched := scheduler.NewScheduler(syncService, sources, scheduler.Config{
		RunImmediately: !cfg.Sync.DisableImmediateRun,
		RunTimeout:     cfg.Sync.RunTimeout,
	}, logger)

	logger.Info("starting karakeep syncer",
		"sources", len(sources),
		"history", cfg.Database.Enabled(),
		"events", cfg.RabbitMQ.Enabled,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
