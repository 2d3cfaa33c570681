package fetcher

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the API routes for mounting under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// fetch session endpoints
	r.Post("/fetch", h.StartFetch)
	r.Delete("/fetch/current", h.StopFetch)
	r.Get("/fetch/status", h.FetchStatus)

	// groups endpoints
	r.Get("/groups", h.ListGroups)
	r.Get("/groups/{groupID}/summary", h.GroupSummary)

	// messages endpoints
	r.Get("/messages", h.ListMessages)
	r.Post("/messages/{groupID}/{messageID}/delete", h.DeleteMessage)
	r.Post("/messages/{groupID}/{messageID}/restore", h.RestoreMessage)

	// pin lockout endpoints
	r.Get("/pin/status", h.PinStatus)
	r.Post("/pin/attempt", h.PinAttempt)
	r.Post("/pin/reset", h.PinReset)

	return r
}
