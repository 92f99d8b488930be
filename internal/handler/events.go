package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/notify"
)

// heartbeatInterval keeps proxies from dropping an idle stream.
const heartbeatInterval = 25 * time.Second

// EventsHandler serves GET /api/notifications/stream as Server-Sent
// Events. The browser connects with EventSource, which cannot set an
// Authorization header, so the auth middleware also accepts the token as
// an access_token query parameter.
type EventsHandler struct {
	hub    *notify.Hub
	logger *slog.Logger
}

func NewEventsHandler(hub *notify.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "streaming is not supported",
		})
		return
	}

	// The server-wide write timeout would sever a long-lived stream, so
	// lift the deadline for this response only.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, handle := h.hub.Subscribe(identity.ID)
	defer h.hub.Unsubscribe(identity.ID, handle)

	// An immediate comment confirms the connection before any event.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.logger.Debug("notification stream opened", "user_id", identity.ID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("notification stream closed", "user_id", identity.ID)
			return

		case n, open := <-ch:
			if !open {
				// The user reconnected elsewhere; this stream is done.
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("encoding notification event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
