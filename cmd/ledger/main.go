package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/config"
	"github.com/devrev/promptledger/internal/ledger"
	"github.com/devrev/promptledger/internal/metrics"
	"github.com/devrev/promptledger/internal/server"
	"github.com/devrev/promptledger/internal/service"
	"github.com/devrev/promptledger/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("journal", cfg.Journal.Enabled),
		zap.Bool("archive", cfg.Archive.Enabled))

	operator, err := cfg.OperatorID()
	if err != nil {
		logger.Fatal("Invalid operator identity", zap.Error(err))
	}
	sessionKeeper, err := cfg.SessionKeeperID()
	if err != nil {
		logger.Fatal("Invalid session-keeper identity", zap.Error(err))
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(registry)

	// Initialize the core ledger
	core, err := ledger.New(ledger.Config{
		Operator:           operator,
		SessionKeeper:      sessionKeeper,
		MaxRequests:        cfg.Ledger.MaxRequests,
		MaxSessionRequests: cfg.Ledger.MaxSessionRequests,
		MaxBatchSize:       cfg.Ledger.MaxBatchSize,
	})
	if err != nil {
		logger.Fatal("Failed to initialize ledger", zap.Error(err))
	}

	// Initialize the event archive
	var archive store.Archive
	if cfg.Archive.Enabled {
		pg, err := store.NewPostgresArchive(context.Background(), cfg.ArchiveDSN(), logger)
		if err != nil {
			logger.Fatal("Failed to connect to event archive", zap.Error(err))
		}
		defer pg.Close()
		archive = pg
		logger.Info("Event archive connected",
			zap.String("host", cfg.Archive.Host),
			zap.String("database", cfg.Archive.Database))
	}

	eventSvc := service.NewEventService(archive, m, logger)
	defer eventSvc.Close()

	// Initialize the journal
	var journalSvc *service.JournalService
	if cfg.Journal.Enabled {
		journalSvc, err = service.NewJournalService(
			&service.JournalConfig{
				Dir:        cfg.Journal.Dir,
				SyncWrites: cfg.Journal.SyncWrites,
			},
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize journal", zap.Error(err))
		}
		defer journalSvc.Close()
	}

	ledgerSvc := service.NewLedgerService(core, journalSvc, eventSvc, m, logger)

	// Recover from the journal
	logger.Info("Starting journal recovery")
	if err := ledgerSvc.Recover(context.Background()); err != nil {
		logger.Fatal("Failed to recover from journal", zap.Error(err))
	}

	// Start the metrics server
	var metricsSrv *server.MetricsServer
	if cfg.Metrics.Enabled {
		metricsSrv = server.NewMetricsServer(
			&server.MetricsServerConfig{
				Port: cfg.Metrics.Port,
				Path: cfg.Metrics.Path,
			},
			registry,
			m,
			logger,
		)
		if err := metricsSrv.Start(); err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
		defer metricsSrv.Stop()
	}

	// Start the HTTP server
	srv := server.NewServer(cfg, ledgerSvc, logger)
	srv.SetupRoutes()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}
}

// initLogger initializes the zap logger from logging configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
