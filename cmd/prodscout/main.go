// Command prodscout runs topic research and deep-research enrichment from the
// terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/app"
	"github.com/Keyring-Network/prodscout/internal/config"
	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/logging"
	"github.com/Keyring-Network/prodscout/internal/research"
)

type researcher interface {
	Run(ctx context.Context, req research.Request) (research.Result, error)
}

type enricher interface {
	Fetch(ctx context.Context, website string) (enrichment.Result, error)
}

var (
	loadConfig    = config.Load
	newLogger     = logging.New
	newResearcher = func(cfg config.Config, logger *zap.Logger) (researcher, error) {
		return app.NewResearcher(cfg, logger)
	}
	newEnricher = func(cfg config.Config, logger *zap.Logger) enricher {
		return app.NewFetcher(cfg, logger)
	}
)

type cliState struct {
	configFile string
	verbose    bool
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}
	root := &cobra.Command{
		Use:   "prodscout",
		Short: "Discover products for a topic",
		Long: `prodscout turns a topic into directory keywords, searches the product
directory once per keyword and merges the results into one deduplicated list.

Example usage:
  prodscout research "crm for freelancers"
  prodscout research crm --keywords crm=20,invoicing=5
  prodscout enrich https://acme.io`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.init()
		},
	}
	root.PersistentFlags().StringVar(&state.configFile, "config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")
	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(newResearchCmd(state), newEnrichCmd(state))
	return root
}

func (s *cliState) init() error {
	if s.configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, s.configFile); err != nil {
			return err
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level := "warn"
	if s.verbose {
		level = "debug"
	}
	logger, err := newLogger(level, "console", "prodscout")
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = logger
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		cancel()
		os.Exit(1)
	}
}

// userMessage trims internal detail from errors that have a message meant
// for people.
func userMessage(err error) string {
	var fetchErr *enrichment.EnrichmentFetchError
	var unavailable *enrichment.SiteUnavailableError
	switch {
	case errors.As(err, &fetchErr):
		return fetchErr.Message
	case errors.As(err, &unavailable):
		return fmt.Sprintf("%s: %s", enrichment.SiteUnavailableMessage, unavailable.URL)
	default:
		return err.Error()
	}
}
