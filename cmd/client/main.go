// Command contacts is the command line client of the contacts API. Besides the single API calls
// it starts the terminal search and the web frontend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/client"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/config"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/metrics"
	"go.uber.org/zap"
)

// app is the state shared by all subcommands. It is filled in before any subcommand runs.
type app struct {
	baseURL  string
	logLevel string

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	api      *client.Client
}

// Usage examples on the command line:
// > go run ./cmd/client list --limit 10
// > CONTACTS_BASE_URL=http://localhost:8000/api/contacts/ go run ./cmd/client search --first-name dirk
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "contacts",
		Short: "Client of the contacts API",
		Long: `Work with the contacts API from the command line.

Settings are read from the YAML file named by CONTACTS_CONFIG and from
CONTACTS_* environment variables, e.g. CONTACTS_BASE_URL.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "contacts API endpoint (default from config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.createCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.searchCmd(),
		a.birthdaysCmd(),
		a.tuiCmd(),
		a.webCmd(),
	)
	return root
}

// setup loads the configuration, applies the flags and builds logger and client.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.registry = prometheus.NewRegistry()
	a.api = client.New(cfg.BaseURL,
		client.WithLogger(a.logger),
		client.WithMetrics(metrics.NewClient(a.registry)))
	return nil
}
