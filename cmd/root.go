package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rakeform/app"
	"github.com/kilianp07/rakeform/config"
	"github.com/kilianp07/rakeform/infra/logger"
)

const defaultConfig = "config.yaml"

// Execute runs the CLI.
func Execute() error { return NewRootCmd().Execute() }

// NewRootCmd builds the rakeform command tree. Without a subcommand it runs
// the formation service.
func NewRootCmd() *cobra.Command {
	var cfgPath, envFile string
	root := &cobra.Command{
		Use:          "rakeform",
		Short:        "Rake formation optimization service",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfig, "configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	load := func() (*config.Config, error) { return loadConfig(cfgPath) }
	root.AddCommand(newPlanCmd(load), newHistoryCmd(load))
	return root
}

// loadConfig reads path. A missing default file falls back to defaults and
// environment overrides.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfig {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfgPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
