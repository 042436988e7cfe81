package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/dripfeed"
)

// BuildAPI converts the api section into an SDK API value.
func BuildAPI(cfg *Config) (dripfeed.API, error) {
	var opts []dripfeed.APIOption

	if cfg.API.Timeout != 0 {
		opts = append(opts, dripfeed.WithTimeout(cfg.API.Timeout.Duration()))
	}

	if len(cfg.API.Headers) > 0 {
		opts = append(opts, dripfeed.WithHeaders(mapToKeyValuePairs(cfg.API.Headers)...))
	}

	return dripfeed.NewAPI(cfg.API.URL, opts...)
}

// BuildPollerOptions converts the polling settings into poller options.
func BuildPollerOptions(cfg *Config) []dripfeed.PollerOption {
	return []dripfeed.PollerOption{
		dripfeed.WithTickPeriod(cfg.Tick.Duration()),
		dripfeed.WithIdleTicks(cfg.IdleTicks),
		dripfeed.WithSendingTicks(cfg.SendingTicks),
		dripfeed.WithDropStale(cfg.DropStale),
	}
}

// BuildPanelOptions converts the whole configuration into panel options.
func BuildPanelOptions(cfg *Config, logger *slog.Logger) ([]dripfeed.Option, error) {
	api, err := BuildAPI(cfg)
	if err != nil {
		return nil, err
	}

	opts := []dripfeed.Option{
		dripfeed.WithAPI(api),
		dripfeed.WithPort(cfg.Port),
		dripfeed.WithFile(cfg.File),
		dripfeed.WithHistorySize(cfg.HistorySize),
		dripfeed.WithPollerOptions(BuildPollerOptions(cfg)...),
	}
	if cfg.Title != "" {
		opts = append(opts, dripfeed.WithTitle(cfg.Title))
	}
	if logger != nil {
		opts = append(opts, dripfeed.WithLogger(logger))
	}
	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
