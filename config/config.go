// Package config provides YAML configuration parsing for dripfeed.
//
// This package enables running the panel as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Matsuura Drip Feed
//	port: 8080
//	api:
//	  url: http://sender.local/api
//	  timeout: 5s
//	  headers:
//	    X-Panel: ${PANEL_NAME:-shop-floor}
//	file: part-0042.nc
//	tick: 1s
//	idle_ticks: 5
//	sending_ticks: 2
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultTimeout      = 10 * time.Second
	defaultTick         = time.Second
	defaultIdleTicks    = 5
	defaultSendingTicks = 2
	defaultHistorySize  = 50

	// minTick keeps a config file from turning the panel into a load test
	minTick    = 100 * time.Millisecond
	minTimeout = time.Second
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the panel title. Defaults to "Drip Feed" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// API describes the sender endpoint.
	API APIConfig `yaml:"api"`

	// File is the default file sent by the start button.
	File string `yaml:"file"`

	// Tick is the time between poller ticks. Defaults to 1s.
	Tick Duration `yaml:"tick"`

	// IdleTicks is the poll threshold while idle. Defaults to 5.
	IdleTicks int `yaml:"idle_ticks"`

	// SendingTicks is the poll threshold while sending. Defaults to 2.
	SendingTicks int `yaml:"sending_ticks"`

	// DropStale discards replies that arrive after a newer one.
	DropStale bool `yaml:"drop_stale"`

	// HistorySize is the number of banners kept for /banner/history.
	// Defaults to 50.
	HistorySize int `yaml:"history_size"`
}

// APIConfig defines the sender endpoint.
type APIConfig struct {
	// URL is the full API URL, e.g. http://sender.local/api.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout is the per-request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each command.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the API URL, header values and file.
// Defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(defaultTimeout)
	}
	if c.Tick == 0 {
		c.Tick = Duration(defaultTick)
	}
	if c.IdleTicks == 0 {
		c.IdleTicks = defaultIdleTicks
	}
	if c.SendingTicks == 0 {
		c.SendingTicks = defaultSendingTicks
	}
	if c.HistorySize == 0 {
		c.HistorySize = defaultHistorySize
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.API.URL == "" {
		return errors.New("api.url is required")
	}
	expanded, err := expandEnvVars(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url: %w", err)
	}
	c.API.URL = expanded

	parsedURL, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("api.url: scheme must be http or https, got %q", parsedURL.Scheme)
	}

	for k, v := range c.API.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("api.headers[%s]: %w", k, err)
		}
		c.API.Headers[k] = expanded
	}

	if c.API.Timeout.Duration() < minTimeout {
		return fmt.Errorf("api.timeout must be at least %s, got %s", minTimeout, c.API.Timeout.Duration())
	}

	expanded, err = expandEnvVars(c.File)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	c.File = expanded

	if c.Tick.Duration() < minTick {
		return fmt.Errorf("tick must be at least %s, got %s", minTick, c.Tick.Duration())
	}

	if c.IdleTicks < 0 {
		return fmt.Errorf("idle_ticks must be positive, got %d", c.IdleTicks)
	}
	if c.SendingTicks < 0 {
		return fmt.Errorf("sending_ticks must be positive, got %d", c.SendingTicks)
	}
	if c.SendingTicks > c.IdleTicks {
		return fmt.Errorf("sending_ticks (%d) must not exceed idle_ticks (%d)", c.SendingTicks, c.IdleTicks)
	}

	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}

	return nil
}
