package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/httpserver/handlers"
)

func init() { Register(registerRealtime) }

// The stream route carries no request timeout: connections are
// long-lived by design and end on client disconnect.
func registerRealtime(r chi.Router, d deps.Deps) {
	r.Get("/realtime/list/{slug}/events", handlers.Stream(d))
}
