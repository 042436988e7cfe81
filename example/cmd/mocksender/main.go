// Standalone mock sender for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mocksender
//	go run ./example/cmd/mocksender --addr :9998 --step 20 --files part-0042.nc
//
// Then in another terminal:
//
//	go run ./cmd/dripfeed serve -c example/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/dripfeed/internal/mocksender"
)

const shutdownTimeout = 5 * time.Second

// newRootCmd builds the mocksender command with its flags.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mocksender",
		Short: "Run a mock drip-feed sender",
		Long: `Run a mock drip-feed sender on PUT /api.

The mock accepts cmd=start&file=<name>, cmd=stop and cmd=status and
advances the transfer by --step percent on every status request.

Example:
  mocksender --addr :9999 --step 10
  mocksender --files part-0042.nc,part-0043.nc`,
		SilenceUsage: true,
		RunE:         runMockSender,
	}

	cmd.Flags().StringP("addr", "a", ":9999", "listen address")
	cmd.Flags().IntP("step", "s", mocksender.DefaultStep, "percent sent per status request")
	cmd.Flags().StringP("files", "f", "", "comma-separated list of files that can be started (empty allows any)")
	return cmd
}

// newMux builds the /api handler from the command's flags.
func newMux(cmd *cobra.Command, logger *slog.Logger) *http.ServeMux {
	step, _ := cmd.Flags().GetInt("step")
	files, _ := cmd.Flags().GetString("files")

	var allowed []string
	if files != "" {
		allowed = strings.Split(files, ",")
	}

	mux := http.NewServeMux()
	mux.Handle("/api", mocksender.New(step, allowed, logger))
	return mux
}

func runMockSender(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

	addr, _ := cmd.Flags().GetString("addr")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mock sender starting on %s\n", ln.Addr())
	fmt.Fprintln(out, "Commands: PUT /api with cmd=start&file=<name>, cmd=stop, cmd=status")
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)

	srv := &http.Server{
		Handler:           newMux(cmd, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("mock sender error: %w", err)
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
