package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/api"
	"github.com/Keyring-Network/prodscout/internal/app"
	"github.com/Keyring-Network/prodscout/internal/config"
	"github.com/Keyring-Network/prodscout/internal/events"
	"github.com/Keyring-Network/prodscout/internal/logging"
	"github.com/Keyring-Network/prodscout/internal/workflows"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadConfig    = config.Load
	newLogger     = logging.New
	newBroker     = events.NewBroker
	openStore     = app.OpenStore
	newResearcher = func(cfg config.Config, logger *zap.Logger) (api.Researcher, error) {
		return app.NewResearcher(cfg, logger)
	}
	dialTemporal       = client.Dial
	newWorkflowService = func(c client.Client, taskQueue string) api.Enricher {
		return workflows.NewService(c, taskQueue)
	}
	newServer = func(deps api.Dependencies) server {
		return api.NewServer(deps)
	}
	notifyContext = signal.NotifyContext
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
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, "prodscout-api")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	researcher, err := newResearcher(cfg, logger)
	if err != nil {
		return err
	}

	enricher, closeEnricher, err := buildEnricher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEnricher()

	srv := newServer(api.Dependencies{
		Store:      st,
		Researcher: researcher,
		Enricher:   enricher,
		Resolver:   app.NewResolver(cfg),
		Broker:     newBroker(),
		Logger:     logger.Named("api"),
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("prodscout api listening",
		zap.String("addr", addr),
		zap.String("store", cfg.StoreBackend),
		zap.Bool("temporal", strings.TrimSpace(cfg.TemporalAddress) != ""),
	)
	return ignoreServerClosed(srv.Start(ctx, addr))
}

// buildEnricher uses the enrichment workflow when a Temporal address is
// configured and the in-process fetcher otherwise.
func buildEnricher(cfg config.Config, logger *zap.Logger) (api.Enricher, func(), error) {
	if strings.TrimSpace(cfg.TemporalAddress) == "" {
		return app.NewFetcher(cfg, logger), func() {}, nil
	}
	temporalClient, err := dialTemporal(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return nil, nil, fmt.Errorf("dial temporal: %w", err)
	}
	closeFn := func() {
		if temporalClient != nil {
			temporalClient.Close()
		}
	}
	return newWorkflowService(temporalClient, cfg.TemporalTaskQueue), closeFn, nil
}

func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
