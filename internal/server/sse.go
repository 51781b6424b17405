package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/internal/relay"
)

// SSEHeartbeatInterval is the interval for SSE heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// wireEvent is the shape delivered on the SSE feed:
// {"channel": "...", "payload": {...}}.
type wireEvent struct {
	Channel relay.Channel   `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

func (s *sseWriter) writeEvent(ev wireEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", data); err != nil {
		return err
	}
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// streamEvents serves the relay over SSE. An optional threadID query
// parameter narrows the feed to one thread's events.
func (srv *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("threadID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Flush headers before the first event so clients see the connection
	// open immediately.
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	// Small buffer for low-latency streaming. The relay delivers in the
	// publisher's goroutine, so a slow client must never block a turn:
	// drop, log, move on.
	events := make(chan wireEvent, 32)

	unsub := srv.relay.SubscribeAll(func(ch relay.Channel, payload json.RawMessage) {
		if threadID != "" && !payloadBelongsToThread(payload, threadID) {
			return
		}
		select {
		case events <- wireEvent{Channel: ch, Payload: payload}:
		default:
			logging.Warn().
				Str("channel", string(ch)).
				Msg("SSE event dropped: client channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := sse.writeEvent(ev); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// payloadBelongsToThread filters by the threadID field every relay payload
// carries.
func payloadBelongsToThread(payload json.RawMessage, threadID string) bool {
	var probe struct {
		ThreadID string `json:"threadID"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.ThreadID == threadID
}
