package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/miding/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Delete("/", h.DeleteNote)
			r.Post("/focus", h.FocusNote)
			r.Put("/content", h.UpdateContent)
			r.Put("/title", h.UpdateTitle)
			r.Post("/tags", h.AddTag)
			r.Delete("/tags/{tag}", h.RemoveTag)
			r.Post("/snapshots", h.SaveSnapshot)
			r.Post("/commit", h.Commit)
			r.Post("/templates/{kind}", h.InsertTemplate)
		})
	})

	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks/toggle", h.ToggleTask)

	r.Get("/tickets", h.ListTickets)
	r.Put("/tickets/status", h.SetTicketStatus)
	r.Get("/tickets/by-key/{key}", h.TicketsByKey)

	r.Get("/history", h.History)
	r.Get("/journal", h.Journal)
	r.Get("/stats", h.Stats)
	r.Get("/search", h.Search)
	r.Get("/vcs/log", h.GitLog)

	r.Get("/error", h.LastError)
	r.Delete("/error", h.ClearError)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
