package dripfeed

import (
	"errors"
	"net/url"
	"time"
)

const defaultAPITimeout = 10 * time.Second

// API describes the sender endpoint the panel talks to.
//
// API is immutable after creation via [NewAPI]. Getters return copies of
// mutable data.
type API struct {
	url     string
	headers map[string]string
	timeout time.Duration
}

// URL returns the full API URL, e.g. http://sender.local/api.
func (a API) URL() string {
	return a.url
}

// Headers returns a copy of the custom headers sent with every command.
func (a API) Headers() map[string]string {
	return copyMap(a.headers)
}

// Timeout returns the per-request timeout. Defaults to 10 seconds.
func (a API) Timeout() time.Duration {
	return a.timeout
}

// NewAPI creates an [API] for the given URL.
//
// The URL must use the http or https scheme.
//
// Example:
//
//	api, err := dripfeed.NewAPI("http://sender.local/api",
//	    dripfeed.WithTimeout(5*time.Second),
//	)
func NewAPI(rawURL string, opts ...APIOption) (API, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return API{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return API{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return API{}, errors.New("URL must have a host")
	}

	cfg := &apiConfig{
		headers: make(map[string]string),
		timeout: defaultAPITimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return API{}, err
		}
	}

	return API{
		url:     rawURL,
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
