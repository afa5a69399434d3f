// Command hubctl runs maintenance tasks against a hub's document store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyhub/internal/bootstrap"
	"github.com/dukerupert/familyhub/internal/config"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/logging"
)

var (
	envFile  string
	logLevel string
	rootCmd  = &cobra.Command{
		Use:           "hubctl",
		Short:         "Maintenance tool for a family hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openHub loads configuration and opens the hub's store. The returned func
// closes it.
func openHub(ctx context.Context) (*config.Config, docstore.Store, *slog.Logger, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := logging.New(os.Stderr, logLevel)
	hubID, err := bootstrap.HubID(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	store, closeFn, err := bootstrap.OpenStore(ctx, cfg, hubID, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, store, logger, closeFn, nil
}
