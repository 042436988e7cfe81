package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/dripfeed"
	"github.com/jpalmerr/dripfeed/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the control panel server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control panel server",
	Long: `Start the dripfeed control panel server.

The server will:
  - Load configuration from the specified YAML file
  - Poll the sender's status on the adaptive schedule
  - Serve the control panel on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  dripfeed serve -c config.yaml
  dripfeed serve --config /etc/dripfeed/config.yaml --verbose`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().BoolP("verbose", "v", false, "log every request at debug level")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"api", cfg.API.URL,
		"file", cfg.File,
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"tick", cfg.Tick.Duration().String(),
		"idle_ticks", cfg.IdleTicks,
		"sending_ticks", cfg.SendingTicks,
	)

	opts, err := config.BuildPanelOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build panel options: %w", err)
	}

	panel, err := dripfeed.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create panel: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- panel.Start(ctx)
	}()

	return waitForShutdown(ctx, errChan, logger)
}

// waitForShutdown waits for a blocking component to return, bounding the
// wait after a signal by shutdownTimeout.
func waitForShutdown(ctx context.Context, errChan <-chan error, logger *slog.Logger) error {
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
