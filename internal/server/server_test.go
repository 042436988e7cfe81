package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/dripfeed/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDispatcher records dispatched commands.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeDispatcher) Dispatch(cmd, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd+":"+file)
	return f.err
}

func (f *fakeDispatcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var testAssets = fstest.MapFS{
	"assets/index.html": &fstest.MapFile{
		Data: []byte(`<title>{{.Title}}</title><button id="send_start_btn" value="{{.File}}"></button>`),
	},
}

func newTestServer(d Dispatcher) (*Server, *store.MemoryStore) {
	st := store.NewMemoryStore()
	if d == nil {
		d = &fakeDispatcher{}
	}
	return NewServer(st, d, 0, testAssets, Page{Title: "Shop <Floor>", File: "part.nc"}, testLogger()), st
}

func TestHandlePanel_SubstitutesEscapedValues(t *testing.T) {
	srv, _ := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<title>Shop &lt;Floor&gt;</title>") {
		t.Errorf("title not escaped/substituted: %s", body)
	}
	if !strings.Contains(body, `value="part.nc"`) {
		t.Errorf("file not substituted: %s", body)
	}
}

func TestHandlePanel_UnknownPath(t *testing.T) {
	srv, _ := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		form      url.Values
		wantCode  int
		wantCalls []string
	}{
		{"start with file", http.MethodPost, "/command/start", url.Values{"file": {"a.nc"}}, http.StatusAccepted, []string{"start:a.nc"}},
		{"stop", http.MethodPost, "/command/stop", nil, http.StatusAccepted, []string{"stop:"}},
		{"status", http.MethodPost, "/command/status", nil, http.StatusAccepted, []string{"status:"}},
		{"unknown command", http.MethodPost, "/command/reboot", nil, http.StatusBadRequest, nil},
		{"wrong method", http.MethodGet, "/command/start", nil, http.StatusMethodNotAllowed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			srv, _ := newTestServer(d)

			var body io.Reader
			if tt.form != nil {
				body = strings.NewReader(tt.form.Encode())
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.form != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			calls := d.Calls()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Errorf("calls[%d] = %q, want %q", i, calls[i], tt.wantCalls[i])
				}
			}
		})
	}
}

func TestHandleCommand_DispatcherError(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("status poller stopped")}
	srv, _ := newTestServer(d)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/stop", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleBanner(t *testing.T) {
	srv, st := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/banner", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("empty store: status = %d, want 204", rec.Code)
	}

	st.Set(store.Banner{Style: "danger", Icon: "fa-bomb", Message: "Already Stopped", Command: "stop"})

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/banner", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got store.Banner
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Style != "danger" || got.Message != "Already Stopped" {
		t.Errorf("banner = %+v", got)
	}
}

func TestHandleHistory(t *testing.T) {
	srv, st := newTestServer(nil)
	st.Set(store.Banner{Message: "one"})
	st.Set(store.Banner{Message: "two"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/banner/history", nil))

	var got []store.Banner
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[0].Message != "one" || got[1].Message != "two" {
		t.Errorf("history = %+v", got)
	}
}

func TestHandleSSE_SendsCurrentBanner(t *testing.T) {
	srv, st := newTestServer(nil)
	st.Set(store.Banner{Style: "success", Message: "Idle "})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	srv.handleSSE(rec, req.WithContext(ctx))

	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") {
		t.Errorf("body should start with an SSE data line, got: %q", body)
	}
	if !strings.Contains(body, "Idle ") {
		t.Errorf("response should contain current banner, got: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	srv, st := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	req = req.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)
	st.Set(store.Banner{Message: "Sent 12% "})
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	if !strings.Contains(rec.Body.String(), "Sent 12% ") {
		t.Errorf("response should contain streamed update, got: %s", rec.Body.String())
	}
}

func TestHandleWebSocket_StreamsBanners(t *testing.T) {
	srv, st := newTestServer(nil)
	st.Set(store.Banner{Message: "Idle "})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first store.Banner
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first.Message != "Idle " {
		t.Errorf("first banner = %q, want current banner", first.Message)
	}

	// the handler subscribes before writing the current banner, so this
	// update cannot be missed
	st.Set(store.Banner{Message: "Started sending [a.nc] "})

	var next store.Banner
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if next.Message != "Started sending [a.nc] " {
		t.Errorf("next banner = %q", next.Message)
	}
}

// lateSetStore sets a banner inside the first Current call, landing it
// after the handler subscribed but before it read the snapshot.
type lateSetStore struct {
	*store.MemoryStore
	late store.Banner
	once sync.Once
}

func (l *lateSetStore) Current() (store.Banner, bool) {
	l.once.Do(func() { l.MemoryStore.Set(l.late) })
	return l.MemoryStore.Current()
}

func newLateSetServer() (*Server, *lateSetStore) {
	st := &lateSetStore{
		MemoryStore: store.NewMemoryStore(),
		late: store.Banner{
			Style:      "success",
			Message:    "Sent 40% ",
			Command:    "status",
			RequestID:  "req-40",
			RenderedAt: time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC),
		},
	}
	return NewServer(st, &fakeDispatcher{}, 0, testAssets, Page{}, testLogger()), st
}

func TestHandleSSE_BannerSetDuringConnectSentOnce(t *testing.T) {
	srv, _ := newLateSetServer()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	srv.handleSSE(rec, req.WithContext(ctx))

	body := rec.Body.String()
	if n := strings.Count(body, "data: "); n != 1 {
		t.Errorf("data lines = %d, want 1: %q", n, body)
	}
	if !strings.Contains(body, "Sent 40% ") {
		t.Errorf("response should contain the banner, got: %s", body)
	}
}

func TestHandleWebSocket_BannerSetDuringConnectSentOnce(t *testing.T) {
	srv, st := newLateSetServer()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first store.Banner
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first.RequestID != "req-40" {
		t.Errorf("first banner = %+v, want the late banner", first)
	}

	st.Set(store.Banner{Message: "Sent 50% ", RequestID: "req-50"})

	var next store.Banner
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if next.RequestID != "req-50" {
		t.Errorf("next banner = %+v, want req-50 without a repeat of req-40", next)
	}
}

func TestReplayFilter(t *testing.T) {
	at := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)
	sent := store.Banner{Message: "Idle ", RequestID: "a", RenderedAt: at}

	tests := []struct {
		name  string
		armed bool
		items []store.Banner
		want  []bool
	}{
		{"first match skipped once", true, []store.Banner{sent, sent}, []bool{true, false}},
		{"first differs disarms", true, []store.Banner{{Message: "Sent 5% ", RequestID: "b", RenderedAt: at}, sent}, []bool{false, false}},
		{"same time in another zone", true, []store.Banner{{Message: "Idle ", RequestID: "a", RenderedAt: at.In(time.FixedZone("X", 3600))}}, []bool{true}},
		{"nothing sent", false, []store.Banner{sent}, []bool{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := replayFilter{sent: sent, armed: tt.armed}
			for i, b := range tt.items {
				if got := f.skip(b); got != tt.want[i] {
					t.Errorf("skip(item %d) = %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestHandleMetrics(t *testing.T) {
	srv, _ := newTestServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default Go collectors")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), &fakeDispatcher{}, 19211, testAssets, Page{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://localhost:19211/banner")
	if err != nil {
		cancel()
		t.Fatalf("GET /banner error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	cancel()

	// the port is released after shutdown
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := http.Get("http://localhost:19211/banner"); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("server still serving after context cancellation")
}

func TestServer_StartPortInUse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewServer(store.NewMemoryStore(), &fakeDispatcher{}, 19212, nil, Page{}, testLogger())
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	second := NewServer(store.NewMemoryStore(), &fakeDispatcher{}, 19212, nil, Page{}, testLogger())
	if err := second.Start(ctx); err == nil {
		t.Error("second Start() expected bind error, got nil")
	}
}
