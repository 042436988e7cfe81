package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/dripfeed"
	"github.com/jpalmerr/dripfeed/internal/mocksender"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// start a mock sender on a random local port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logger.Error("failed to listen for mock sender", "error", err)
		os.Exit(1)
	}
	mock := &http.Server{
		Handler:           mocksender.New(10, nil, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = mock.Serve(ln) }()
	defer func() { _ = mock.Close() }()

	api, err := dripfeed.NewAPI(fmt.Sprintf("http://%s/api", ln.Addr()),
		dripfeed.WithTimeout(5*time.Second),
	)
	if err != nil {
		logger.Error("failed to create api", "error", err)
		os.Exit(1)
	}

	panel, err := dripfeed.New(
		dripfeed.WithAPI(api),
		dripfeed.WithPort(8080),
		dripfeed.WithTitle("Drip Feed Demo"),
		dripfeed.WithFile("part-0042.nc"),
		dripfeed.WithLogger(logger),
		dripfeed.WithBannerCallback(func(b dripfeed.Banner) {
			if b.Style == dripfeed.StyleDanger {
				logger.Warn("sender error", "cmd", b.Command.String(), "message", b.Message)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create panel", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Drip Feed Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Start sends part-0042.nc to a mock sender that")
	fmt.Println("  advances 10% on every status poll.")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := panel.Start(ctx); err != nil {
		logger.Error("panel error", "error", err)
		os.Exit(1)
	}
}
