package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Handler writes a client's events to an HTTP response.
type Handler struct {
	manager   *Manager
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler. A zero heartbeat uses 30 seconds.
func NewHandler(manager *Manager, heartbeat time.Duration, logger *slog.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Handler{manager: manager, heartbeat: heartbeat, logger: logger}
}

// Stream subscribes to username's events and writes them until the client
// goes away or the manager shuts down. The caller has already authorized
// the request.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, username string) {
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(username)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))

	if err := h.send(w, rc, Event{
		Type:      EventConnected,
		Username:  username,
		Data:      map[string]string{"client_id": client.ID},
		Timestamp: time.Now(),
	}); err != nil {
		log.Warn("failed to send connection event", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := h.send(w, rc, event); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-ticker.C:
			if err := h.send(w, rc, NewHeartbeatEvent()); err != nil {
				log.Info("client disconnected during heartbeat")
				return
			}
		case <-client.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// send writes one event in SSE framing and flushes it.
func (h *Handler) send(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	// Each write extends the deadline so the server's WriteTimeout does not
	// cut long-lived streams.
	if err := rc.SetWriteDeadline(time.Now().Add(2 * h.heartbeat)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
