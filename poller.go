package dripfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/dripfeed/internal/metrics"
	"github.com/jpalmerr/dripfeed/internal/poller"
)

const (
	// DefaultTickPeriod is the time between ticks.
	DefaultTickPeriod = time.Second

	// DefaultIdleTicks is the poll threshold while no transfer is running.
	DefaultIdleTicks = 5

	// DefaultSendingTicks is the poll threshold while a file is being sent.
	DefaultSendingTicks = 2
)

// ErrStopped is returned by [StatusPoller.SendCommand] after Stop.
var ErrStopped = errors.New("status poller stopped")

// PollerState is a snapshot of the poller's bookkeeping.
type PollerState struct {
	// TickCount is the number of ticks since the last issued command.
	TickCount int

	// LastMessage is the message of the most recently applied reply.
	LastMessage string

	// IntervalTicks is the current poll threshold: the sending interval
	// while LastMessage mentions "Sending", the idle interval otherwise.
	IntervalTicks int
}

// StatusPoller polls the sender for status on an adaptive schedule and
// issues user commands.
//
// A ticker fires every tick period. Each tick advances a counter; once it
// reaches the threshold a status request is issued and the counter resets.
// The threshold is short while the last reply mentions "Sending" and long
// otherwise. Any issued command resets the counter, so user actions restart
// the idle countdown.
//
// Requests run in their own goroutines. Their completions, and ticks, are
// serialized on one lock so the state behaves as if driven by a single event
// loop. All methods are safe for concurrent use.
type StatusPoller struct {
	commander Commander
	renderer  Renderer
	logger    *slog.Logger
	tick      time.Duration
	dropStale bool

	// guarded by mu
	mu        sync.Mutex
	countdown *poller.Countdown
	issued    uint64
	applied   uint64

	lifeMu   sync.Mutex
	started  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	loop     sync.WaitGroup
	inflight sync.WaitGroup
}

// NewStatusPoller creates a [StatusPoller] that issues commands through c.
//
// Defaults: 1 second ticks, idle threshold 5, sending threshold 2, banners
// discarded, [slog.Default] logger, every completion applied.
//
// Returns an error if c is nil or an option is invalid.
func NewStatusPoller(c Commander, opts ...PollerOption) (*StatusPoller, error) {
	if c == nil {
		return nil, errors.New("commander cannot be nil")
	}

	cfg := &pollerConfig{
		tick:         DefaultTickPeriod,
		idleTicks:    DefaultIdleTicks,
		sendingTicks: DefaultSendingTicks,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.sendingTicks > cfg.idleTicks {
		return nil, fmt.Errorf("sending ticks (%d) must not exceed idle ticks (%d)", cfg.sendingTicks, cfg.idleTicks)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := cfg.renderer
	if renderer == nil {
		renderer = RendererFunc(func(Banner) {})
	}

	return &StatusPoller{
		commander: c,
		renderer:  renderer,
		logger:    logger,
		tick:      cfg.tick,
		dropStale: cfg.dropStale,
		countdown: poller.NewCountdown(cfg.idleTicks, cfg.sendingTicks),
	}, nil
}

// Start issues one status request immediately and then begins ticking.
//
// Start is non-blocking. Ticking continues until [StatusPoller.Stop] is
// called or ctx is cancelled. If ctx is nil, context.Background() is used.
// Start is idempotent; if Stop was called first, Start is a no-op.
func (p *StatusPoller) Start(ctx context.Context) {
	p.lifeMu.Lock()
	if p.started || p.stopped {
		p.lifeMu.Unlock()
		return
	}
	p.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	runCtx := p.ctx // capture under lock
	p.loop.Add(1)
	p.lifeMu.Unlock()

	p.logger.Info("status poller starting",
		"tick", p.tick.String(),
		"idle_ticks", p.State().IntervalTicks,
	)

	if err := p.SendCommand(runCtx, CommandStatus, Params{}); err != nil {
		p.logger.Debug("initial status request skipped", "error", err)
	}

	go func() {
		defer p.loop.Done()

		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.OnTick()
			}
		}
	}()
}

// Stop halts ticking and waits for in-flight requests to finish.
//
// Stop is idempotent and safe to call before Start.
func (p *StatusPoller) Stop() {
	p.lifeMu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.lifeMu.Unlock()

	p.loop.Wait()
	p.inflight.Wait()
}

// OnTick advances the countdown by one tick and issues a status request
// when the threshold is reached.
//
// OnTick is called by the ticker started in [StatusPoller.Start]; it is
// exported so callers with their own clock can drive the poller.
func (p *StatusPoller) OnTick() {
	metrics.TicksTotal.Inc()

	p.mu.Lock()
	due := p.countdown.Tick()
	interval := p.countdown.Snapshot().IntervalTicks
	p.mu.Unlock()

	metrics.IntervalTicks.Set(float64(interval))

	if !due {
		return
	}
	if err := p.SendCommand(p.runContext(), CommandStatus, Params{}); err != nil {
		p.logger.Debug("status poll skipped", "error", err)
	}
}

// SendCommand issues cmd and returns without waiting for the reply.
//
// Issuing resets the tick counter to zero. Start and stop first render a
// loading banner. When the reply arrives its message becomes the last seen
// message, whatever the error flag, and a danger or success banner is
// rendered. Transport failures are logged and render nothing, leaving the
// loading banner in place.
//
// Returns an error if cmd is unknown or the poller was stopped.
func (p *StatusPoller) SendCommand(ctx context.Context, cmd Command, params Params) error {
	if !cmd.Valid() {
		return fmt.Errorf("unknown command %q", cmd)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.lifeMu.Lock()
	if p.stopped {
		p.lifeMu.Unlock()
		return ErrStopped
	}
	p.inflight.Add(1)
	p.lifeMu.Unlock()

	requestID := uuid.NewString()

	p.mu.Lock()
	p.countdown.Reset()
	p.issued++
	seq := p.issued
	if cmd.IsTransfer() {
		loading := LoadingBanner(cmd)
		loading.RequestID = requestID
		p.render(loading)
	}
	p.mu.Unlock()

	metrics.RequestsTotal.WithLabelValues(cmd.String()).Inc()

	go func() {
		defer p.inflight.Done()
		p.complete(ctx, cmd, params, seq, requestID)
	}()
	return nil
}

// State returns a snapshot of the poller's bookkeeping.
func (p *StatusPoller) State() PollerState {
	p.mu.Lock()
	s := p.countdown.Snapshot()
	p.mu.Unlock()

	return PollerState{
		TickCount:     s.TickCount,
		LastMessage:   s.LastMessage,
		IntervalTicks: s.IntervalTicks,
	}
}

// complete performs the request and applies its reply.
func (p *StatusPoller) complete(ctx context.Context, cmd Command, params Params, seq uint64, requestID string) {
	start := time.Now()
	result, err := p.commander.Do(ctx, cmd, params)
	latency := time.Since(start)
	metrics.RequestDuration.WithLabelValues(cmd.String()).Observe(latency.Seconds())

	logAttrs := []any{
		"request_id", requestID,
		"cmd", cmd.String(),
		"latency_ms", latency.Milliseconds(),
	}

	if err != nil {
		metrics.ResultsTotal.WithLabelValues(cmd.String(), metrics.OutcomeTransportError).Inc()
		if ctx.Err() != nil {
			p.logger.Debug("command abandoned", append(logAttrs, "error", err.Error())...)
			return
		}
		p.logger.Warn("command failed", append(logAttrs, "error", err.Error())...)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dropStale && seq < p.applied {
		metrics.ResultsTotal.WithLabelValues(cmd.String(), metrics.OutcomeStale).Inc()
		p.logger.Debug("stale reply dropped", append(logAttrs, "seq", seq, "applied", p.applied)...)
		return
	}
	if seq > p.applied {
		p.applied = seq
	}

	p.countdown.Record(result.Message)

	banner := BannerFor(cmd, result)
	banner.RequestID = requestID
	p.render(banner)

	if result.Failed() {
		metrics.ResultsTotal.WithLabelValues(cmd.String(), metrics.OutcomeServerError).Inc()
		p.logger.Info("sender reported error", append(logAttrs, "message", result.Message)...)
	} else {
		metrics.ResultsTotal.WithLabelValues(cmd.String(), metrics.OutcomeOK).Inc()
		p.logger.Debug("command completed", append(logAttrs, "message", result.Message)...)
	}
}

// render hands b to the renderer with panic recovery. Caller holds p.mu.
func (p *StatusPoller) render(b Banner) {
	metrics.BannersTotal.WithLabelValues(string(b.Style)).Inc()

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			p.logger.Error("renderer panic",
				"correlation_id", correlationID,
				"request_id", b.RequestID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	p.renderer.Render(b)
}

// runContext returns the context of the running poller, or Background when
// the poller is driven manually.
func (p *StatusPoller) runContext() context.Context {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}
