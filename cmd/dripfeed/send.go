package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/dripfeed"
	"github.com/jpalmerr/dripfeed/config"
)

// sendCmd issues a single command and prints the reply.
var sendCmd = &cobra.Command{
	Use:   "send <start|stop|status>",
	Short: "Issue one command to the sender",
	Long: `Issue a single start, stop or status command and print the reply.

The file for start defaults to the file in the config and can be
overridden with --file.

Exit codes:
  0 - The sender accepted the command
  1 - The sender reported an error, or could not be reached

Example:
  dripfeed send status -c config.yaml
  dripfeed send start -c config.yaml --file part-0043.nc`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"start", "stop", "status"},
	RunE:      runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	sendCmd.Flags().StringP("file", "f", "", "file to send (start only)")
	_ = sendCmd.MarkFlagRequired("config")
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := dripfeed.ParseCommand(args[0])
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	api, err := config.BuildAPI(cfg)
	if err != nil {
		return fmt.Errorf("failed to build api: %w", err)
	}

	var params dripfeed.Params
	if command == dripfeed.CommandStart {
		params.File, _ = cmd.Flags().GetString("file")
		if params.File == "" {
			params.File = cfg.File
		}
	}

	commander := dripfeed.NewHTTPCommander(api)
	defer commander.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := commander.Do(ctx, command, params)
	if err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}

	banner := dripfeed.BannerFor(command, result)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatBanner(banner))

	if result.Failed() {
		return errors.New(result.Message)
	}
	return nil
}
