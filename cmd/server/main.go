// Package main provides the railboard server binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/railboard/internal/config"
	"github.com/KevinKickass/railboard/internal/seed"
	"github.com/KevinKickass/railboard/internal/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	Version = "0.1.0"
	appName = "railboard"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Railway circuit status board",
		Long: `RailBoard serves an editable status board of railway circuits.

Edits are audited, persisted write-through to Postgres or a data
directory, and pushed to connected clients over WebSocket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", envOr("RAILBOARD_CONFIG", "configs/config.yaml"), "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check-seed <path>",
		Short: "Validate a seed file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := seed.NewLoader()
			if err != nil {
				return err
			}
			f, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: zone %q, %d circuits\n", args[0], f.Zone, len(f.Circuits))
			return nil
		},
	})

	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	return cfg.Build()
}

func run(configPath, logLevel string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Info("Config loaded successfully", zap.String("path", configPath))

	ctx := context.Background()

	backend, release, err := system.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open backing store: %w", err)
	}
	defer release()

	lifecycle, err := system.NewLifecycleManager(ctx, backend, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize board: %w", err)
	}

	if err := lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start system: %w", err)
	}

	logger.Info("RailBoard started successfully")

	// Graceful shutdown on signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("RailBoard stopped successfully")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
