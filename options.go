package dripfeed

import (
	"errors"
	"log/slog"
)

// panelConfig holds mutable state during Panel construction.
type panelConfig struct {
	title           string
	file            string
	api             *API
	port            int
	historySize     int
	logger          *slog.Logger
	pollerOpts      []PollerOption
	bannerCallbacks []func(Banner)
}

// Option configures a [Panel] during construction.
//
// Built-in options: [WithAPI], [WithPort], [WithTitle], [WithFile],
// [WithHistorySize], [WithLogger], [WithPollerOptions], [WithBannerCallback].
type Option func(*panelConfig) error

// WithAPI sets the sender endpoint. Required.
//
// Example:
//
//	api, _ := dripfeed.NewAPI("http://sender.local/api")
//	panel, err := dripfeed.New(dripfeed.WithAPI(api))
func WithAPI(api API) Option {
	return func(cfg *panelConfig) error {
		if api.url == "" {
			return errors.New("api must be created with NewAPI")
		}
		cfg.api = &api
		return nil
	}
}

// WithPort sets the HTTP port for the panel server. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *panelConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the page title. Defaults to "Drip Feed".
func WithTitle(title string) Option {
	return func(cfg *panelConfig) error {
		cfg.title = title
		return nil
	}
}

// WithFile sets the file sent by the start button when the request does not
// name one.
func WithFile(name string) Option {
	return func(cfg *panelConfig) error {
		cfg.file = name
		return nil
	}
}

// WithHistorySize sets how many banners the panel keeps for
// /banner/history. Defaults to 50.
func WithHistorySize(n int) Option {
	return func(cfg *panelConfig) error {
		if n <= 0 {
			return errors.New("history size must be positive")
		}
		cfg.historySize = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *panelConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPollerOptions passes options through to the panel's [StatusPoller].
//
// The panel always installs its own renderer and logger; renderer and
// logger options given here are overridden.
//
// Example:
//
//	panel, err := dripfeed.New(
//	    dripfeed.WithAPI(api),
//	    dripfeed.WithPollerOptions(
//	        dripfeed.WithIdleTicks(10),
//	        dripfeed.WithDropStale(true),
//	    ),
//	)
func WithPollerOptions(opts ...PollerOption) Option {
	return func(cfg *panelConfig) error {
		cfg.pollerOpts = append(cfg.pollerOpts, opts...)
		return nil
	}
}

// WithBannerCallback registers a function called for every rendered banner,
// after the banner has been published to connected browsers.
//
// Callbacks run synchronously while the poller holds its state lock; they
// must be non-blocking. Panics are recovered and logged. Nil callbacks are
// ignored.
//
// Example:
//
//	dripfeed.WithBannerCallback(func(b dripfeed.Banner) {
//	    if b.Style == dripfeed.StyleDanger {
//	        log.Printf("sender error: %s", b.Message)
//	    }
//	})
func WithBannerCallback(cb func(Banner)) Option {
	return func(cfg *panelConfig) error {
		if cb == nil {
			return nil
		}
		cfg.bannerCallbacks = append(cfg.bannerCallbacks, cb)
		return nil
	}
}
