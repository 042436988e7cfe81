package dripfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jpalmerr/dripfeed/dashboard"
	"github.com/jpalmerr/dripfeed/internal/server"
	"github.com/jpalmerr/dripfeed/internal/store"
)

const (
	defaultPort  = 8080
	defaultTitle = "Drip Feed"
)

// Panel is the control panel: a [StatusPoller] against the sender API plus
// the web page that shows its banners and forwards button presses.
//
// The typical lifecycle is:
//
//	api, _ := dripfeed.NewAPI("http://sender.local/api")
//	panel, err := dripfeed.New(dripfeed.WithAPI(api), dripfeed.WithFile("part.nc"))
//	if err != nil {
//	    slog.Error("failed to create panel", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	panel.Start(ctx) // blocks until context cancelled
type Panel struct {
	title           string
	file            string
	api             API
	port            int
	historySize     int
	logger          *slog.Logger
	pollerOpts      []PollerOption
	bannerCallbacks []func(Banner)
}

// New creates a [Panel] with the given options.
//
// [WithAPI] is required. Defaults: port 8080, title "Drip Feed", history 50,
// [slog.Default] logger and the [StatusPoller] defaults.
//
// Returns an error if the API is missing or any option is invalid. Poller
// options are validated here as well, so Start only fails on I/O.
func New(opts ...Option) (*Panel, error) {
	cfg := &panelConfig{
		port:        defaultPort,
		title:       defaultTitle,
		historySize: store.DefaultHistorySize,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.api == nil {
		return nil, errors.New("an API is required (use WithAPI)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Panel{
		title:           cfg.title,
		file:            cfg.file,
		api:             *cfg.api,
		port:            cfg.port,
		historySize:     cfg.historySize,
		logger:          logger,
		pollerOpts:      cfg.pollerOpts,
		bannerCallbacks: cfg.bannerCallbacks,
	}

	// fail fast on bad poller options
	nop := CommanderFunc(func(context.Context, Command, Params) (CommandResult, error) {
		return CommandResult{}, nil
	})
	if _, err := p.newPoller(nop, RendererFunc(func(Banner) {})); err != nil {
		return nil, fmt.Errorf("invalid poller options: %w", err)
	}

	return p, nil
}

// Start polls the sender and serves the panel until ctx is cancelled.
//
// During execution:
//
//   - a status request is issued immediately, then on the adaptive schedule
//   - the panel page, banner API, live streams and /metrics are served
//   - button presses on the page are forwarded as commands
//
// Returns nil on graceful shutdown, or an error if the HTTP server cannot
// start.
func (p *Panel) Start(ctx context.Context) error {
	p.logger.Info("panel starting", "api", p.api.url, "file", p.file)
	p.logger.Info("panel available", "url", fmt.Sprintf("http://localhost:%d", p.port))

	if ctx.Err() != nil {
		return nil
	}

	bannerStore := store.NewMemoryStoreWithHistory(p.historySize)

	commander := NewHTTPCommander(p.api)
	defer commander.Close()

	sp, err := p.newPoller(commander, RendererFunc(func(b Banner) {
		// store first so callbacks observe what browsers see
		bannerStore.Set(toStoreBanner(b))
		for _, cb := range p.bannerCallbacks {
			invokeCallbackSafe(cb, b, p.logger)
		}
	}))
	if err != nil {
		return fmt.Errorf("failed to create status poller: %w", err)
	}

	dispatcher := &pollerDispatcher{ctx: ctx, poller: sp, defaultFile: p.file}
	page := server.Page{Title: p.title, File: p.file}
	httpServer := server.NewServer(bannerStore, dispatcher, p.port, dashboard.Assets, page, p.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	sp.Start(ctx)

	<-ctx.Done()
	sp.Stop()
	p.logger.Info("panel stopped")
	return nil
}

// API returns the configured sender endpoint.
func (p *Panel) API() API {
	return p.api
}

// Port returns the configured HTTP port.
func (p *Panel) Port() int {
	return p.port
}

func (p *Panel) newPoller(c Commander, r Renderer) (*StatusPoller, error) {
	opts := make([]PollerOption, 0, len(p.pollerOpts)+2)
	opts = append(opts, p.pollerOpts...)
	opts = append(opts, WithRenderer(r), WithPollerLogger(p.logger))
	return NewStatusPoller(c, opts...)
}

// pollerDispatcher forwards panel button presses to the poller.
type pollerDispatcher struct {
	ctx         context.Context
	poller      *StatusPoller
	defaultFile string
}

// Dispatch implements server.Dispatcher. Requests outlive the HTTP handler,
// so they run on the panel's context.
func (d *pollerDispatcher) Dispatch(cmd, file string) error {
	c, err := ParseCommand(cmd)
	if err != nil {
		return err
	}

	var params Params
	if c == CommandStart {
		params.File = file
		if params.File == "" {
			params.File = d.defaultFile
		}
	}
	return d.poller.SendCommand(d.ctx, c, params)
}

// toStoreBanner converts a banner to its storage form, rendering its HTML.
func toStoreBanner(b Banner) store.Banner {
	return store.Banner{
		Style:      string(b.Style),
		Icon:       b.Icon,
		Message:    b.Message,
		Command:    b.Command.String(),
		RequestID:  b.RequestID,
		HTML:       b.HTML(),
		RenderedAt: b.RenderedAt,
	}
}

// invokeCallbackSafe calls a banner callback with panic recovery.
func invokeCallbackSafe(cb func(Banner), b Banner, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("banner callback panicked",
				"correlation_id", uuid.NewString(),
				"request_id", b.RequestID,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	cb(b)
}
