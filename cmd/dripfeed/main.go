// Package main is the entry point for the dripfeed CLI.
//
// dripfeed can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	dripfeed serve -c config.yaml          # Start the control panel
//	dripfeed watch -c config.yaml          # Poll status in the terminal
//	dripfeed send start -c config.yaml     # Issue one command
//	dripfeed validate -c config.yaml       # Validate configuration
//	dripfeed version                       # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "dripfeed",
	Short: "A control panel for a drip-feed file sender",
	Long: `dripfeed is a control panel for a drip-feed file sender.

It polls the sender's /api endpoint for status, faster while a file is
being sent, and lets you start and stop transfers from a web page.

Quick start:
  1. Create a config file (dripfeed.yaml)
  2. Run: dripfeed serve -c dripfeed.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  api:
    url: http://sender.local/api
  file: part-0042.nc`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this dripfeed binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dripfeed %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
