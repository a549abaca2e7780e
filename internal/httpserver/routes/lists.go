package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/httpserver/handlers"
	"github.com/linkboard/linkboard/internal/httpserver/mw"
)

func init() { Register(registerLists) }

func registerLists(r chi.Router, d deps.Deps) {
	// Clicks and comments are reachable without a token on public lists,
	// so they get a per-IP budget the authenticated routes don't need.
	burst, refill := d.ClickRateBurst, d.ClickRateRefill
	if burst <= 0 {
		burst = 60
	}
	if refill <= 0 {
		refill = 120
	}
	anonLimit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             burst,
		RefillPerIPPerMin: refill,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})

	r.Route("/lists", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Post("/", handlers.CreateList(d))

		r.Route("/{slug}", func(r chi.Router) {
			r.Patch("/", handlers.UpdateList(d))
			r.Delete("/", handlers.DeleteList(d))

			r.Get("/updates", handlers.Updates(d))
			r.Get("/activities", handlers.Activities(d))
			r.With(anonLimit).Post("/comments", handlers.AddComment(d))

			r.Route("/urls", func(r chi.Router) {
				r.Post("/", handlers.AddURL(d))
				r.Post("/reorder", handlers.ReorderURLs(d))
				r.Patch("/{urlID}", handlers.UpdateURL(d))
				r.Delete("/{urlID}", handlers.DeleteURL(d))
				r.With(anonLimit).Post("/{urlID}/click", handlers.RecordClick(d))
				r.Post("/{urlID}/health", handlers.CheckHealth(d))
			})

			r.Route("/collaborators", func(r chi.Router) {
				r.Post("/", handlers.AddCollaborator(d))
				r.Delete("/{email}", handlers.RemoveCollaborator(d))
			})
		})
	})
}
