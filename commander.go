package dripfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/jpalmerr/dripfeed/internal/poller"
)

// Commander issues commands to the sender.
//
// Do returns an error only for transport failures (unreachable sender,
// timeout, undecodable reply). A reply with error=1 is a successful call
// whose result reports failure.
type Commander interface {
	Do(ctx context.Context, cmd Command, params Params) (CommandResult, error)
}

// CommanderFunc adapts a plain function to [Commander].
type CommanderFunc func(ctx context.Context, cmd Command, params Params) (CommandResult, error)

// Do calls f(ctx, cmd, params).
func (f CommanderFunc) Do(ctx context.Context, cmd Command, params Params) (CommandResult, error) {
	return f(ctx, cmd, params)
}

// HTTPCommander talks to the sender API over HTTP.
//
// Each command is a PUT with a form body: cmd=<cmd>[&file=<name>].
type HTTPCommander struct {
	api    API
	client *poller.Client
}

// NewHTTPCommander creates a [HTTPCommander] for api.
func NewHTTPCommander(api API) *HTTPCommander {
	return &HTTPCommander{
		api:    api,
		client: poller.NewClient(),
	}
}

// Do sends cmd and decodes the reply.
func (h *HTTPCommander) Do(ctx context.Context, cmd Command, params Params) (CommandResult, error) {
	resp := h.client.Do(ctx, poller.Request{
		URL:     h.api.url,
		Form:    EncodeCommand(cmd, params),
		Headers: h.api.headers,
		Timeout: h.api.timeout,
	})
	if resp.Error != nil {
		return CommandResult{}, resp.Error
	}

	result, err := DecodeResult(resp.Body)
	if err != nil {
		return CommandResult{}, fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return result, nil
}

// Close releases idle connections.
func (h *HTTPCommander) Close() {
	h.client.Close()
}

// EncodeCommand builds the form body for cmd.
func EncodeCommand(cmd Command, params Params) url.Values {
	form := url.Values{"cmd": {cmd.String()}}
	if params.File != "" {
		form.Set("file", params.File)
	}
	return form
}

// DecodeResult parses a sender reply.
//
// The "error" field is required and must be 0 or 1.
func DecodeResult(body []byte) (CommandResult, error) {
	var raw struct {
		Error   *int   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return CommandResult{}, fmt.Errorf("invalid reply: %w", err)
	}
	if raw.Error == nil {
		return CommandResult{}, errors.New("invalid reply: missing error field")
	}
	if *raw.Error != 0 && *raw.Error != 1 {
		return CommandResult{}, fmt.Errorf("invalid reply: error must be 0 or 1, got %d", *raw.Error)
	}
	return CommandResult{Error: *raw.Error, Message: raw.Message}, nil
}
