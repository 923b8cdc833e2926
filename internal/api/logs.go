package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const logWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogs serves the recent log lines followed by live output, over a
// WebSocket when the client asks for one and chunked text/plain otherwise.
// ?follow=false returns only the recent lines.
func (s *APIServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBroadcaster == nil {
		writeError(w, http.StatusServiceUnavailable, "log stream disabled")
		return
	}
	if r.URL.Query().Get("follow") == "false" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, line := range s.logBroadcaster.Recent() {
			_, _ = w.Write(line)
		}
		return
	}
	if websocket.IsWebSocketUpgrade(r) {
		s.streamLogsWS(w, r)
		return
	}
	s.streamLogsHTTP(w, r)
}

func (s *APIServer) streamLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	lines := s.logBroadcaster.Subscribe()
	defer s.logBroadcaster.Unsubscribe(lines)

	// reads only detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(logWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *APIServer) streamLogsHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lines := s.logBroadcaster.Subscribe()
	defer s.logBroadcaster.Unsubscribe(lines)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := w.Write(line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
