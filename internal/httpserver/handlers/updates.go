package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/httpserver/mw"
)

// Updates serves the unified consistency read: state, activity and
// roster in one pass, authoritative over anything streamed.
func Updates(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		limit := d.ActivityLimit
		if raw := r.URL.Query().Get("activityLimit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeBadRequest(w, "activityLimit must be a non-negative integer")
				return
			}
			if n > 0 {
				limit = n
			}
		}

		update, err := d.Updates.GetUpdate(r.Context(), slug, mw.IdentityFrom(r.Context()), limit)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, update)
	}
}
