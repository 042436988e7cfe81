package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/dripfeed/internal/metrics"
	"github.com/jpalmerr/dripfeed/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// placeholders in the panel page
	titlePlaceholder = "{{.Title}}"
	filePlaceholder  = "{{.File}}"
)

// Dispatcher forwards a button press to the poller.
//
// cmd is one of "start", "stop" or "status"; file is only meaningful for
// start and may be empty.
type Dispatcher interface {
	Dispatch(cmd, file string) error
}

// Page holds the values substituted into the panel page.
type Page struct {
	// Title is shown in the browser tab and header.
	Title string

	// File is the value of the start button, sent as the file parameter.
	File string
}

// Server handles HTTP requests for the control panel.
//
// Routes:
//   - GET /: the panel page
//   - POST /command/{cmd}: forward a button press (start, stop, status)
//   - GET /banner: the current banner as JSON
//   - GET /banner/history: recent banners as JSON
//   - GET /events: Server-Sent Events stream of banners
//   - GET /ws: WebSocket stream of banners
//   - GET /metrics: Prometheus metrics
type Server struct {
	store      store.Store
	dispatcher Dispatcher
	port       int
	httpServer *http.Server
	assets     fs.FS
	page       Page
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// assets may be nil, in which case "/" is not served. The server is not
// started until [Server.Start] is called.
func NewServer(st store.Store, d Dispatcher, port int, assets fs.FS, page Page, logger *slog.Logger) *Server {
	return &Server{
		store:      st,
		dispatcher: d,
		port:       port,
		assets:     assets,
		page:       page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Handler returns the request multiplexer with all panel routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/command/{cmd}", s.handleCommand)
	mux.HandleFunc("/banner", s.handleBanner)
	mux.HandleFunc("/banner/history", s.handleHistory)
	mux.HandleFunc("/events", s.handleSSE)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	if s.assets != nil {
		mux.HandleFunc("/", s.handlePanel)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start returns once the listener is bound. The server shuts down
// gracefully when ctx is cancelled.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context so
		// long-running stream handlers end on shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handlePanel serves the panel page.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Panel not found", http.StatusInternalServerError)
		return
	}

	// escape to prevent XSS through config values
	rendered := strings.NewReplacer(
		titlePlaceholder, html.EscapeString(s.page.Title),
		filePlaceholder, html.EscapeString(s.page.File),
	).Replace(string(content))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write panel response", "error", err)
	}
}

// handleCommand forwards a button press to the dispatcher.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cmd := r.PathValue("cmd")
	switch cmd {
	case "start", "stop", "status":
	default:
		http.Error(w, fmt.Sprintf("unknown command %q", cmd), http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	file := r.FormValue("file")

	if err := s.dispatcher.Dispatch(cmd, file); err != nil {
		s.logger.Warn("command rejected", "cmd", cmd, "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.logger.Debug("command accepted", "cmd", cmd, "file", file)
	writeJSON(w, http.StatusAccepted, map[string]string{"cmd": cmd, "status": "accepted"}, s.logger)
}

// handleBanner returns the current banner, or 204 if none was rendered yet.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	banner, ok := s.store.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, banner, s.logger)
}

// handleHistory returns recent banners, oldest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.store.History(), s.logger)
}

// handleSSE streams banners via Server-Sent Events.
//
// The handler uses write deadlines so a slow or vanished client cannot block
// it past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	metrics.StreamClients.WithLabelValues("sse").Inc()
	defer metrics.StreamClients.WithLabelValues("sse").Dec()

	current, hasCurrent := s.store.Current()
	replay := replayFilter{sent: current, armed: hasCurrent}
	if hasCurrent {
		data, err := json.Marshal(current)
		if err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case banner, ok := <-ch:
			if !ok {
				return
			}
			if replay.skip(banner) {
				continue
			}
			data, err := json.Marshal(banner)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}

// handleWebSocket streams banners as JSON text frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	metrics.StreamClients.WithLabelValues("websocket").Inc()
	defer metrics.StreamClients.WithLabelValues("websocket").Dec()

	// the panel never sends frames; reading detects the close handshake
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(banner store.Banner) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(banner)
	}

	current, hasCurrent := s.store.Current()
	replay := replayFilter{sent: current, armed: hasCurrent}
	if hasCurrent {
		if err := write(current); err != nil {
			return
		}
	}

	for {
		select {
		case banner, ok := <-ch:
			if !ok {
				return
			}
			if replay.skip(banner) {
				continue
			}
			if err := write(banner); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}

// replayFilter drops the subscription's first banner when it is the
// snapshot already written on connect. A Set landing between Subscribe and
// Current reaches the client through both paths otherwise.
type replayFilter struct {
	sent  store.Banner
	armed bool
}

func (f *replayFilter) skip(b store.Banner) bool {
	if !f.armed {
		return false
	}
	f.armed = false
	return sameBanner(b, f.sent)
}

func sameBanner(a, b store.Banner) bool {
	return a.RequestID == b.RequestID &&
		a.RenderedAt.Equal(b.RenderedAt) &&
		a.Command == b.Command &&
		a.Style == b.Style &&
		a.Message == b.Message
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
