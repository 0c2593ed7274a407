package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/state", h.State)

	r.Route("/notebooks", func(r chi.Router) {
		r.Get("/", h.ListNotebooks)
		r.Post("/", h.CreateNotebook)
		r.Delete("/{id}", h.DeleteNotebook)
		r.Get("/{id}/notes", h.ListNotes)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.CreateNote)
		r.Delete("/{id}", h.DeleteNote)
		r.Put("/{id}/content", h.UpdateContent)
		r.Put("/{id}/title", h.UpdateTitle)
		r.Put("/{id}/notebook", h.MoveNote)
		r.Post("/{id}/images", h.UploadImage)
	})

	r.Route("/trash", func(r chi.Router) {
		r.Get("/", h.ListTrash)
		r.Delete("/", h.EmptyTrash)
		r.Post("/{id}/restore", h.RestoreNote)
		r.Delete("/{id}", h.PurgeNote)
	})

	r.Get("/images/{id}", h.GetImage)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Get("/", h.GetSession)
		r.Put("/content", h.SessionContent)
		r.Put("/title", h.SessionTitle)
		r.Get("/preview", h.SessionPreview)
		r.Post("/images", h.SessionImage)
	})

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
