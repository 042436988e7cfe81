package dripfeed

import (
	"errors"
	"log/slog"
	"time"
)

// minTickPeriod keeps a misconfigured poller from hammering the sender.
const minTickPeriod = 10 * time.Millisecond

// pollerConfig holds mutable state during StatusPoller construction.
type pollerConfig struct {
	tick         time.Duration
	idleTicks    int
	sendingTicks int
	renderer     Renderer
	logger       *slog.Logger
	dropStale    bool
}

// PollerOption configures a [StatusPoller] during construction.
type PollerOption func(*pollerConfig) error

// WithTickPeriod sets the time between ticks. Defaults to 1 second.
func WithTickPeriod(d time.Duration) PollerOption {
	return func(cfg *pollerConfig) error {
		if d < minTickPeriod {
			return errors.New("tick period must be at least 10ms")
		}
		cfg.tick = d
		return nil
	}
}

// WithIdleTicks sets how many ticks pass between status polls while idle.
// Defaults to 5.
func WithIdleTicks(n int) PollerOption {
	return func(cfg *pollerConfig) error {
		if n <= 0 {
			return errors.New("idle ticks must be positive")
		}
		cfg.idleTicks = n
		return nil
	}
}

// WithSendingTicks sets how many ticks pass between status polls while a
// file is being sent. Defaults to 2.
func WithSendingTicks(n int) PollerOption {
	return func(cfg *pollerConfig) error {
		if n <= 0 {
			return errors.New("sending ticks must be positive")
		}
		cfg.sendingTicks = n
		return nil
	}
}

// WithRenderer sets where banners go. Nil renderers are rejected.
func WithRenderer(r Renderer) PollerOption {
	return func(cfg *pollerConfig) error {
		if r == nil {
			return errors.New("renderer cannot be nil")
		}
		cfg.renderer = r
		return nil
	}
}

// WithPollerLogger sets the poller's logger. Defaults to [slog.Default].
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithDropStale discards replies to requests issued before the most
// recently applied one.
//
// Requests are never cancelled, so a slow reply can arrive after a newer
// one. By default the last reply to arrive wins; with drop enabled, the
// newest request wins instead.
func WithDropStale(drop bool) PollerOption {
	return func(cfg *pollerConfig) error {
		cfg.dropStale = drop
		return nil
	}
}
