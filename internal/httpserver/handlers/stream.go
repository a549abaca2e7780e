package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkboard/linkboard/internal/events"
	"github.com/linkboard/linkboard/internal/gateway"
	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/httpserver/mw"
)

// Stream serves the server-sent event stream for one list. The
// connection lives until the client disconnects; each message is
// framed as "id: <ms-timestamp>" + "data: <json>".
func Stream(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Updates.ResolveList(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
			return
		}

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		conn := gateway.New(list.ID, d.EventLog, d.Logger, lastEventID(r), gateway.Config{
			PollInterval: d.StreamPoll,
			Grace:        d.StreamGrace,
		})
		_ = conn.Serve(r.Context(), func(env events.Envelope) error {
			payload, err := json.Marshal(env)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", env.Timestamp, payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
	}
}

// lastEventID reads the resume cursor from the query or the standard
// EventSource reconnect header.
func lastEventID(r *http.Request) int64 {
	raw := r.URL.Query().Get("lastEventId")
	if raw == "" {
		raw = r.Header.Get("Last-Event-ID")
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
