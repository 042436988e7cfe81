package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/dripfeed"
	"github.com/jpalmerr/dripfeed/config"
)

// watchCmd runs the status poller without the web panel.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the sender and print status to the terminal",
	Long: `Poll the sender on the adaptive schedule and print one line per banner.

Useful on a headless box next to the machine, or to check a sender before
putting the panel in front of it. Runs until interrupted.

Example:
  dripfeed watch -c config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().BoolP("verbose", "v", false, "log every request at debug level")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	api, err := config.BuildAPI(cfg)
	if err != nil {
		return fmt.Errorf("failed to build api: %w", err)
	}

	commander := dripfeed.NewHTTPCommander(api)
	defer commander.Close()

	opts := append(config.BuildPollerOptions(cfg),
		dripfeed.WithRenderer(terminalRenderer(os.Stdout)),
		dripfeed.WithPollerLogger(logger),
	)
	sp, err := dripfeed.NewStatusPoller(commander, opts...)
	if err != nil {
		return fmt.Errorf("failed to create status poller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sp.Start(ctx)
	<-ctx.Done()
	sp.Stop()
	return nil
}

// terminalRenderer prints each banner as one timestamped line.
func terminalRenderer(w io.Writer) dripfeed.Renderer {
	return dripfeed.RendererFunc(func(b dripfeed.Banner) {
		_, _ = fmt.Fprintln(w, formatBanner(b))
	})
}

// formatBanner renders a banner for the terminal.
func formatBanner(b dripfeed.Banner) string {
	message := b.Message
	if b.Style == dripfeed.StyleWarning {
		message = b.Command.String() + "..."
	}
	return fmt.Sprintf("%s %-7s %-6s %s",
		b.RenderedAt.Format(time.TimeOnly),
		b.Style,
		b.Command,
		message,
	)
}
