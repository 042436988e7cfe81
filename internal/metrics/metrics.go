// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks commands issued to the sender API
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dripfeed_requests_total",
			Help: "Total number of commands issued to the sender API",
		},
		[]string{"cmd"}, // start, stop, status
	)

	// ResultsTotal tracks completed commands by outcome
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dripfeed_results_total",
			Help: "Total number of completed commands by outcome",
		},
		[]string{"cmd", "outcome"}, // ok, server_error, transport_error, stale
	)

	// RequestDuration tracks sender API round trips
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dripfeed_request_duration_seconds",
			Help:    "Duration of sender API requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"cmd"},
	)

	// TicksTotal counts poller ticks
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dripfeed_ticks_total",
			Help: "Total number of poller ticks",
		},
	)

	// IntervalTicks is the current poll threshold in ticks
	IntervalTicks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dripfeed_interval_ticks",
			Help: "Current status poll threshold in ticks (short while sending)",
		},
	)

	// BannersTotal tracks rendered banners by style
	BannersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dripfeed_banners_total",
			Help: "Total number of banners rendered",
		},
		[]string{"style"}, // danger, success, warning
	)

	// StreamClients tracks connected live-update clients
	StreamClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dripfeed_stream_clients",
			Help: "Number of connected live banner clients",
		},
		[]string{"transport"}, // sse, websocket
	)
)

// Outcome labels for ResultsTotal.
const (
	OutcomeOK             = "ok"
	OutcomeServerError    = "server_error"
	OutcomeTransportError = "transport_error"
	OutcomeStale          = "stale"
)
