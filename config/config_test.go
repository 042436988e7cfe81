package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
api:
  url: http://sender.local/api
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.API.Timeout.Duration() != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout.Duration())
	}
	if cfg.Tick.Duration() != time.Second {
		t.Errorf("Tick = %v, want 1s", cfg.Tick.Duration())
	}
	if cfg.IdleTicks != 5 {
		t.Errorf("IdleTicks = %d, want 5", cfg.IdleTicks)
	}
	if cfg.SendingTicks != 2 {
		t.Errorf("SendingTicks = %d, want 2", cfg.SendingTicks)
	}
	if cfg.HistorySize != 50 {
		t.Errorf("HistorySize = %d, want 50", cfg.HistorySize)
	}
	if cfg.DropStale {
		t.Error("DropStale should default to false")
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Matsuura Drip Feed
port: 9090
api:
  url: https://sender.local/api
  timeout: 5s
  headers:
    X-Panel: shop-floor
file: part-0042.nc
tick: 500ms
idle_ticks: 8
sending_ticks: 3
drop_stale: true
history_size: 10
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Matsuura Drip Feed" {
		t.Errorf("Title = %q", cfg.Title)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.API.URL != "https://sender.local/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Timeout.Duration() != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout.Duration())
	}
	if cfg.API.Headers["X-Panel"] != "shop-floor" {
		t.Errorf("Headers[X-Panel] = %q", cfg.API.Headers["X-Panel"])
	}
	if cfg.File != "part-0042.nc" {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.Tick.Duration() != 500*time.Millisecond {
		t.Errorf("Tick = %v, want 500ms", cfg.Tick.Duration())
	}
	if cfg.IdleTicks != 8 || cfg.SendingTicks != 3 {
		t.Errorf("ticks = %d/%d, want 8/3", cfg.IdleTicks, cfg.SendingTicks)
	}
	if !cfg.DropStale {
		t.Error("DropStale = false, want true")
	}
	if cfg.HistorySize != 10 {
		t.Errorf("HistorySize = %d, want 10", cfg.HistorySize)
	}
}

func TestParse_EnvVarExpansion(t *testing.T) {
	t.Setenv("DRIPFEED_HOST", "cnc-07.local")
	t.Setenv("DRIPFEED_TOKEN", "s3cret")

	yaml := `
api:
  url: http://${DRIPFEED_HOST}/api
  headers:
    Authorization: Bearer ${DRIPFEED_TOKEN}
    X-Panel: ${DRIPFEED_UNSET_PANEL:-default-panel}
file: ${DRIPFEED_UNSET_FILE:-}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.API.URL != "http://cnc-07.local/api" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.Headers["Authorization"] != "Bearer s3cret" {
		t.Errorf("Authorization = %q", cfg.API.Headers["Authorization"])
	}
	if cfg.API.Headers["X-Panel"] != "default-panel" {
		t.Errorf("X-Panel = %q, want default", cfg.API.Headers["X-Panel"])
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty default", cfg.File)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing url",
			yaml:    `port: 8080`,
			wantErr: "api.url is required",
		},
		{
			name: "bad scheme",
			yaml: `
api:
  url: ftp://sender.local/api
`,
			wantErr: "scheme must be http or https",
		},
		{
			name: "unset env var",
			yaml: `
api:
  url: http://${DRIPFEED_DEFINITELY_UNSET}/api
`,
			wantErr: "DRIPFEED_DEFINITELY_UNSET",
		},
		{
			name: "port out of range",
			yaml: `
port: 70000
api:
  url: http://sender.local/api
`,
			wantErr: "port must be between",
		},
		{
			name: "tick too small",
			yaml: `
tick: 10ms
api:
  url: http://sender.local/api
`,
			wantErr: "tick must be at least",
		},
		{
			name: "timeout too small",
			yaml: `
api:
  url: http://sender.local/api
  timeout: 100ms
`,
			wantErr: "api.timeout must be at least",
		},
		{
			name: "sending exceeds idle",
			yaml: `
idle_ticks: 2
sending_ticks: 4
api:
  url: http://sender.local/api
`,
			wantErr: "must not exceed idle_ticks",
		},
		{
			name: "negative idle ticks",
			yaml: `
idle_ticks: -1
api:
  url: http://sender.local/api
`,
			wantErr: "idle_ticks must be positive",
		},
		{
			name: "bad duration",
			yaml: `
tick: soon
api:
  url: http://sender.local/api
`,
			wantErr: "invalid duration",
		},
		{
			name:    "bad yaml",
			yaml:    "api: [",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dripfeed.yaml")
	content := `
api:
  url: http://sender.local/api
file: part.nc
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.File != "part.nc" {
		t.Errorf("File = %q, want part.nc", cfg.File)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/dripfeed.yaml")
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error = %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DRIPFEED_SET", "value")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${DRIPFEED_SET}", "value", false},
		{"a-${DRIPFEED_SET}-b", "a-value-b", false},
		{"${DRIPFEED_NOPE:-fallback}", "fallback", false},
		{"${DRIPFEED_NOPE:-}", "", false},
		{"${DRIPFEED_NOPE}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandEnvVars(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
