// Package mocksender implements a fake sender API for demos and tests.
//
// It speaks the same protocol as a real drip-feed sender: PUT with a
// form-encoded cmd, JSON {"error": 0|1, "message": "..."} back. Transfers
// advance by a fixed step on every status request instead of on a serial
// line, so a demo panel shows progress without hardware.
package mocksender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// DefaultStep is the progress added by each status request.
const DefaultStep = 5

// Sender is an in-memory sender. The zero value is not usable; call [New].
type Sender struct {
	step   int
	files  map[string]bool
	logger *slog.Logger

	mu      sync.Mutex
	sending string // file being sent, empty when idle
	percent int
}

// New creates a [Sender] that advances step percent per status request.
//
// If files is non-empty, only those names can be started; anything else
// fails to open. A nil logger uses [slog.Default].
func New(step int, files []string, logger *slog.Logger) *Sender {
	if step <= 0 {
		step = DefaultStep
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sender{step: step, logger: logger}
	if len(files) > 0 {
		s.files = make(map[string]bool, len(files))
		for _, f := range files {
			s.files[f] = true
		}
	}
	return s
}

type reply struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// ServeHTTP handles one command.
func (s *Sender) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	cmd := r.PostForm.Get("cmd")
	var rep reply
	switch cmd {
	case "start":
		rep = s.start(r.PostForm.Get("file"))
	case "stop":
		rep = s.stop()
	case "status":
		rep = s.status()
	default:
		rep = reply{Error: 1, Message: "Unknown command"}
	}

	s.logger.Debug("mock sender command", "cmd", cmd, "error", rep.Error, "message", rep.Message)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		s.logger.Error("failed to encode reply", "error", err)
	}
}

func (s *Sender) start(file string) reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if file == "" || (s.files != nil && !s.files[file]) {
		return reply{Error: 1, Message: fmt.Sprintf("open [%s] FAIL", file)}
	}

	// a new start replaces the current transfer
	s.sending = file
	s.percent = 0
	s.logger.Info("transfer started", "file", file)
	return reply{Message: fmt.Sprintf("Started sending [%s] ", file)}
}

func (s *Sender) stop() reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending == "" {
		return reply{Error: 1, Message: "Already Stopped"}
	}
	s.logger.Info("transfer stopped", "file", s.sending, "percent", s.percent)
	s.sending = ""
	s.percent = 0
	return reply{Message: "Stopped Sending"}
}

func (s *Sender) status() reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sending == "" {
		return reply{Message: "Idle "}
	}

	s.percent += s.step
	if s.percent >= 100 {
		s.logger.Info("transfer finished", "file", s.sending)
		s.sending = ""
		s.percent = 0
		return reply{Message: "Sent 100% "}
	}
	return reply{Message: fmt.Sprintf("Sent %d%% ", s.percent)}
}
