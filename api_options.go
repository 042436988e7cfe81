package dripfeed

import (
	"errors"
	"time"
)

// apiConfig holds mutable state during API construction.
type apiConfig struct {
	headers map[string]string
	timeout time.Duration
}

// APIOption configures an [API] during construction.
//
// Built-in options: [WithHeaders], [WithTimeout].
type APIOption func(*apiConfig) error

// WithHeaders adds custom HTTP headers to every command request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	api, err := dripfeed.NewAPI(url,
//	    dripfeed.WithHeaders("X-Panel", "shop-floor"),
//	)
func WithHeaders(keyValues ...string) APIOption {
	return func(cfg *apiConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout.
//
// Every request resolves within this time, so the panel never waits forever
// on an unreachable sender. Returns an error if the duration is not positive.
func WithTimeout(d time.Duration) APIOption {
	return func(cfg *apiConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}
