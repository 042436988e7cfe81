package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/dripfeed/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a dripfeed configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  dripfeed validate -c config.yaml
  dripfeed validate --config /etc/dripfeed/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := config.BuildAPI(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	file := cfg.File
	if file == "" {
		file = "(none)"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  API:           %s (timeout %s)\n", cfg.API.URL, cfg.API.Timeout.Duration())
	fmt.Printf("  File:          %s\n", file)
	fmt.Printf("  Tick:          %s\n", cfg.Tick.Duration())
	fmt.Printf("  Poll every:    %d ticks idle, %d ticks sending\n", cfg.IdleTicks, cfg.SendingTicks)

	return nil
}
