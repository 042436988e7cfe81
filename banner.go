package dripfeed

import (
	"bytes"
	"html/template"
	"time"
)

// Style is the visual class of a [Banner].
type Style string

const (
	// StyleDanger marks a command the sender rejected.
	StyleDanger Style = "danger"

	// StyleSuccess marks an accepted command or a status reply.
	StyleSuccess Style = "success"

	// StyleWarning marks a transfer command still in flight.
	StyleWarning Style = "warning"
)

// Icon classes used by the panel page.
const (
	IconError   = "fa-bomb"
	IconCommand = "fa-rocket"
	IconStatus  = "fa-binoculars"
	IconLoading = "fa-cog fa-spin"
)

// Banner is one alert shown in the panel's message area.
//
// Each new banner replaces the previous one entirely.
type Banner struct {
	Style      Style
	Icon       string
	Message    string
	Command    Command
	RequestID  string
	RenderedAt time.Time
}

// BannerFor builds the banner for a completed command.
//
// A failed result always yields a danger banner carrying the sender's message
// verbatim. Successful transfer commands get the rocket icon, successful
// status polls the binoculars.
func BannerFor(cmd Command, result CommandResult) Banner {
	b := Banner{
		Message:    result.Message,
		Command:    cmd,
		RenderedAt: time.Now(),
	}

	switch {
	case result.Failed():
		b.Style = StyleDanger
		b.Icon = IconError
	case cmd.IsTransfer():
		b.Style = StyleSuccess
		b.Icon = IconCommand
	default:
		b.Style = StyleSuccess
		b.Icon = IconStatus
	}
	return b
}

// LoadingBanner is shown while a transfer command is in flight.
func LoadingBanner(cmd Command) Banner {
	return Banner{
		Style:      StyleWarning,
		Icon:       IconLoading,
		Command:    cmd,
		RenderedAt: time.Now(),
	}
}

var bannerTemplate = template.Must(template.New("banner").Parse(
	`<div class="row"><div class="col-md-12">` +
		`<div class="alert alert-{{.Style}}" role="alert">` +
		`<i class="fas {{.Icon}} fa-2x"></i>` +
		`<span style="vertical-align:middle">&nbsp;&nbsp;{{.Message}}</span>` +
		`</div></div></div>`))

// HTML renders the banner as the fragment placed into the message area.
// The message is HTML-escaped.
func (b Banner) HTML() string {
	var buf bytes.Buffer
	if err := bannerTemplate.Execute(&buf, b); err != nil {
		return template.HTMLEscapeString(b.Message)
	}
	return buf.String()
}

// Renderer displays banners.
//
// Render is called with the poller's state lock held so banners arrive in
// the same order as the state changes they reflect. Implementations must not
// call back into the [StatusPoller] and should return quickly.
type Renderer interface {
	Render(b Banner)
}

// RendererFunc adapts a plain function to [Renderer].
type RendererFunc func(b Banner)

// Render calls f(b).
func (f RendererFunc) Render(b Banner) {
	f(b)
}
