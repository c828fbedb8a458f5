package main

import (
	"errors"
	"log"
	"strings"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/app"
	"github.com/Keyring-Network/prodscout/internal/config"
	"github.com/Keyring-Network/prodscout/internal/logging"
	"github.com/Keyring-Network/prodscout/internal/workflows"
)

var (
	loadConfig      = config.Load
	newLogger       = logging.New
	dialTemporal    = client.Dial
	openStore       = app.OpenStore
	newWorker       = worker.New
	workerInterrupt = worker.InterruptCh
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.TemporalAddress) == "" {
		return errors.New("TEMPORAL_ADDRESS is required to run the enrichment worker")
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, "prodscout-worker")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	temporalClient, err := dialTemporal(client.Options{
		HostPort: cfg.TemporalAddress,
	})
	if err != nil {
		return err
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	activities := workflows.NewEnrichmentActivities(app.NewResolver(cfg), app.NewDeepResearch(cfg), st, logger.Named("activities"))

	w := newWorker(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.EnrichmentWorkflow)
	w.RegisterActivity(activities)

	logger.Info("prodscout worker started",
		zap.String("task_queue", cfg.TemporalTaskQueue),
		zap.String("store", cfg.StoreBackend),
	)
	return w.Run(workerInterrupt())
}
