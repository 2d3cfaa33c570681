package fetcher

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/groupwatch/internal/pinlock"
	"github.com/blockedby/groupwatch/internal/repository"
)

// Handler handles HTTP requests for the fetch service
type Handler struct {
	manager  *Manager
	groups   *repository.GroupsRepository
	messages *repository.MessagesRepository
	pin      *pinlock.Tracker
}

// NewHandler creates a new handler with the given dependencies
func NewHandler(manager *Manager, groups *repository.GroupsRepository, messages *repository.MessagesRepository, pin *pinlock.Tracker) *Handler {
	return &Handler{
		manager:  manager,
		groups:   groups,
		messages: messages,
		pin:      pin,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// StartFetch handles POST /api/v1/fetch
func (h *Handler) StartFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	opts, err := req.Validate()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Start(r.Context(), opts)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"fetch_id":   job.ID,
		"status":     string(StatusRunning),
		"group":      job.Group,
		"started_at": job.StartedAt.Format(time.RFC3339),
	})
}

// StopFetch handles DELETE /api/v1/fetch/current
func (h *Handler) StopFetch(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "fetch session stopped",
	})
}

// FetchStatus handles GET /api/v1/fetch/status
func (h *Handler) FetchStatus(w http.ResponseWriter, r *http.Request) {
	tgStatus := string(h.manager.GetTelegramStatus())

	current := h.manager.Current()
	if current == nil {
		resp := map[string]any{
			"status":          string(StatusIdle),
			"telegram_status": tgStatus,
		}
		if last := h.manager.LastResult(); last != nil {
			resp["last_result"] = last
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          string(StatusRunning),
		"telegram_status": tgStatus,
		"fetch_id":        current.ID.String(),
		"group":           current.Group,
		"started_at":      current.StartedAt.Format(time.RFC3339),
	})
}

// ListGroups handles GET /api/v1/groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// GroupSummary handles GET /api/v1/groups/{groupID}/summary
func (h *Handler) GroupSummary(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathInt64(w, r, "groupID")
	if !ok {
		return
	}

	rows, err := h.messages.UserSummary(r.Context(), groupID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// ListMessages handles GET /api/v1/messages?group_id=&tag=&limit=
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "group_id query param is required")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	messages, err := h.messages.ListByGroup(r.Context(), groupID, r.URL.Query().Get("tag"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// DeleteMessage handles POST /api/v1/messages/{groupID}/{messageID}/delete
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathInt64(w, r, "groupID")
	if !ok {
		return
	}
	messageID, ok := pathInt64(w, r, "messageID")
	if !ok {
		return
	}

	if err := h.messages.SoftDelete(r.Context(), messageID, groupID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// RestoreMessage handles POST /api/v1/messages/{groupID}/{messageID}/restore
func (h *Handler) RestoreMessage(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathInt64(w, r, "groupID")
	if !ok {
		return
	}
	messageID, ok := pathInt64(w, r, "messageID")
	if !ok {
		return
	}

	if err := h.messages.Restore(r.Context(), messageID, groupID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "restored"})
}

// PinStatus handles GET /api/v1/pin/status
func (h *Handler) PinStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.pin.IsLockedOut(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// PinAttempt handles POST /api/v1/pin/attempt
// Records one failed attempt. Rejected with 423 while locked out.
func (h *Handler) PinAttempt(w http.ResponseWriter, r *http.Request) {
	status, err := h.pin.IsLockedOut(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status.Locked {
		respondJSON(w, http.StatusLocked, status)
		return
	}

	count, wait, err := h.pin.RecordFailedAttempt(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"attempt_count": count,
		"wait_seconds":  int(wait.Seconds()),
	})
}

// PinReset handles POST /api/v1/pin/reset
func (h *Handler) PinReset(w http.ResponseWriter, r *http.Request) {
	if err := h.pin.ResetAttempts(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "pin attempts reset"})
}

// helper functions

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
