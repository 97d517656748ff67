package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcus/galaxy/internal/event"
	"github.com/marcus/galaxy/internal/metrics"
)

const writeTimeout = 10 * time.Second

// sessionStartPayload is the body of POST /session-start, the shape the
// agent hook scripts emit.
type sessionStartPayload struct {
	SessionID string `json:"session_id"`
	CWD       string `json:"cwd"`
	Model     string `json:"model"`
}

// toolUsePayload is the body of the tool endpoints. The file path rides
// inside tool_input, mirroring the hook payload.
type toolUsePayload struct {
	SessionID string `json:"session_id"`
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		FilePath string `json:"file_path"`
	} `json:"tool_input"`
}

// Server exposes the ingest and subscription endpoints.
type Server struct {
	hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewServer builds a relay server around hub.
func NewServer(hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			// Local visualization clients connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session-start", s.handleSessionStart)
	mux.HandleFunc("POST /read", s.handleToolUse("read"))
	mux.HandleFunc("POST /write", s.handleToolUse("write"))
	mux.HandleFunc("POST /edit", s.handleToolUse("edit"))
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var payload sessionStartPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	metrics.RelayIngestTotal.WithLabelValues("session-start").Inc()

	msg, err := event.Marshal(event.SessionStart{
		SessionID: payload.SessionID,
		CWD:       payload.CWD,
		Model:     payload.Model,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.log.Info("session start", "session", payload.SessionID, "model", payload.Model)
	s.hub.Broadcast(msg)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleToolUse(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload toolUsePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		metrics.RelayIngestTotal.WithLabelValues(route).Inc()

		msg, err := event.Marshal(event.ToolUse{
			SessionID: payload.SessionID,
			ToolName:  payload.ToolName,
			FilePath:  payload.ToolInput.FilePath,
			Timestamp: s.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		s.log.Info("tool use", "session", payload.SessionID, "tool", payload.ToolName, "path", payload.ToolInput.FilePath)
		s.hub.Broadcast(msg)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	sub := s.hub.Subscribe()

	// Writer: forward broadcasts until the subscriber goes away.
	go func() {
		defer conn.Close()
		for msg := range sub.Send() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.hub.Unsubscribe(sub)
				return
			}
		}
	}()

	// Reader: we use nothing the client sends, but draining keeps the
	// connection alive and detects closure.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unsubscribe(sub)
				_ = conn.Close()
				return
			}
		}
	}()
}
