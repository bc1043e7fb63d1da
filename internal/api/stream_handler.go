package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
)

// StreamHandler bridges the internal event bus onto a server-sent-events
// endpoint so clients can react to messages, deliveries and status changes
// without polling.
type StreamHandler struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(b *bus.Bus, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{bus: b, logger: logger.Named("api.stream")}
}

type streamEvent struct {
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
}

// Stream subscribes the client to bus events, optionally filtered by a
// namespace prefix via ?ns=. Slow consumers miss events rather than blocking
// the publishers.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsub := h.bus.Subscribe(r.URL.Query().Get("ns"), 64)
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt := <-events:
			data, err := json.Marshal(streamEvent{
				Kind:      evt.Kind,
				Timestamp: evt.Timestamp.UnixMilli(),
				Payload:   evt.Payload,
			})
			if err != nil {
				h.logger.Warn("failed to encode event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
