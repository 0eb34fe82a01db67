package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mayday/internal/app"
	"mayday/internal/config"
)

var (
	configFile string
	cmdRoot    = &cobra.Command{
		Use:   "mayday",
		Short: "Reconcile a music library on disk with the catalog database",
	}
)

func init() {
	cmdRoot.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml (default ./config.yaml or ./config/config.yaml)")
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// cancels the running command, which still reports its partial results.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	loader := config.NewConfigLoader()
	if configFile != "" {
		loader.SetConfigFile(configFile)
	}
	return loader.Load()
}

// withApp loads the configuration, builds the application and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close(context.Background())
	}()

	return fn(ctx, a)
}
