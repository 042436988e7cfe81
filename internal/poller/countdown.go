package poller

import "strings"

// sendingMarker selects the short interval when found in the last status.
const sendingMarker = "sending"

// State is a snapshot of a [Countdown].
type State struct {
	TickCount     int    `json:"tick_count"`
	LastMessage   string `json:"last_message"`
	IntervalTicks int    `json:"interval_ticks"`
}

// Countdown is the tick counter that decides when the next status poll is due.
//
// The threshold is one of two values: the sending interval while the last
// recorded message mentions "Sending" (any case), the idle interval
// otherwise. Countdown is not safe for concurrent use; the owner serializes
// access.
type Countdown struct {
	idle     int
	sending  int
	ticks    int
	interval int
	last     string
}

// NewCountdown returns a Countdown starting at zero ticks on the idle interval.
func NewCountdown(idleTicks, sendingTicks int) *Countdown {
	return &Countdown{
		idle:     idleTicks,
		sending:  sendingTicks,
		interval: idleTicks,
	}
}

// Tick advances the counter by one and reports whether a poll is due.
//
// When due, the counter resets to zero. The threshold is recomputed from the
// last recorded message after the due check, so a message recorded during
// this tick only affects the next one.
func (c *Countdown) Tick() bool {
	c.ticks++
	due := c.ticks >= c.interval
	if due {
		c.ticks = 0
	}
	c.interval = IntervalFor(c.last, c.idle, c.sending)
	return due
}

// Reset sets the counter back to zero, restarting the idle countdown.
func (c *Countdown) Reset() {
	c.ticks = 0
}

// Record remembers the most recent status message.
func (c *Countdown) Record(message string) {
	c.last = message
}

// Snapshot returns the current state.
func (c *Countdown) Snapshot() State {
	return State{
		TickCount:     c.ticks,
		LastMessage:   c.last,
		IntervalTicks: c.interval,
	}
}

// IntervalFor picks the poll threshold for a status message.
func IntervalFor(message string, idleTicks, sendingTicks int) int {
	if IsSending(message) {
		return sendingTicks
	}
	return idleTicks
}

// IsSending reports whether a status message indicates an active transfer.
func IsSending(message string) bool {
	return strings.Contains(strings.ToLower(message), sendingMarker)
}
