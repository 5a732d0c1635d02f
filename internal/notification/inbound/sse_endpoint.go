package inbound

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// heartbeat keeps idle proxies from closing the stream.
const heartbeat = 25 * time.Second

// StreamNotifications pushes the session's notification changes as
// server-sent events until the client leaves or the server stops.
func (h *HTTPEndpoint) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.uc.StreamNotifications(ctx)
	if err != nil {
		http.Error(w, "Session required", http.StatusUnauthorized)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	send := func(frame string) bool {
		if _, err := io.WriteString(w, frame); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(": connected\n\n") {
		slog.WarnContext(ctx, "notification stream closed before it started")
		return
	}

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !send(": ping\n\n") {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode stream event", "action", evt.Action, "error", err)
				continue
			}
			if !send("event: notification\ndata: " + string(data) + "\n\n") {
				return
			}
		}
	}
}
