package store

import "time"

// Banner is the storage representation of a rendered alert banner.
//
// Banner is optimized for JSON serialization (used by the REST API, SSE and
// WebSocket streams). It is decoupled from the public dripfeed.Banner type
// to avoid an import cycle.
type Banner struct {
	// Style is the alert style: "danger", "success" or "warning".
	Style string `json:"style"`

	// Icon is the icon class list, e.g. "fa-rocket".
	Icon string `json:"icon"`

	// Message is the text shown next to the icon.
	Message string `json:"message"`

	// Command is the command whose outcome this banner shows.
	Command string `json:"command"`

	// RequestID identifies the request that produced the banner.
	RequestID string `json:"request_id"`

	// HTML is the rendered fragment that replaces the message area.
	HTML string `json:"html"`

	// RenderedAt is when the banner was produced.
	RenderedAt time.Time `json:"rendered_at"`
}

// Store defines the interface for holding the current banner and
// subscribing to banner changes.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Set replaces the current banner and notifies all subscribers.
	Set(banner Banner)

	// Current returns the current banner, or false if none was set yet.
	Current() (Banner, bool)

	// History returns recent banners, oldest first.
	// The returned slice is a snapshot; modifications do not affect the store.
	History() []Banner

	// Subscribe returns a channel that receives banner updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Banner

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Banner)
}
