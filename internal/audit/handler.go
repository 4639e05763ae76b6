package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/document-management/internal/auth"
	"github.com/frahmantamala/document-management/internal/transport"
	"github.com/frahmantamala/document-management/pkg/logger"
)

// Handler exposes the admin-only audit query and retention endpoints. Route
// level role gating happens in the router; the actor check here is a
// backstop.
type Handler struct {
	*transport.BaseHandler
	Repo    Repository
	Emitter Emitter
}

func NewHandler(repo Repository, emitter Emitter) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Repo:        repo,
		Emitter:     emitter,
	}
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil || !user.Role.IsAdmin() {
		h.WriteError(w, http.StatusForbidden, "admin role required")
		return
	}

	filter := ListFilter{}
	q := r.URL.Query()
	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid actor_id")
			return
		}
		filter.ActorID = &id
	}
	if raw := q.Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid resource_id")
			return
		}
		filter.ResourceID = &id
	}
	if raw := q.Get("action"); raw != "" {
		action := Action(raw)
		filter.Action = &action
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.Repo.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("failed to list audit entries", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

// PurgeEntries is the explicit retention purge, the only sanctioned way to
// remove audit rows. It is itself audited.
func (h *Handler) PurgeEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil || !user.Role.IsAdmin() {
		h.WriteError(w, http.StatusForbidden, "admin role required")
		return
	}

	raw := r.URL.Query().Get("before")
	if raw == "" {
		h.WriteError(w, http.StatusBadRequest, "before is required")
		return
	}
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "before must be RFC3339")
		return
	}

	purged, err := h.Repo.PurgeBefore(r.Context(), cutoff)
	if err != nil {
		h.Logger.Error("failed to purge audit entries", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to purge audit entries")
		return
	}

	h.Emitter.Record(user.ID, ActionRetentionPurge, nil, map[string]any{
		"cutoff": cutoff,
		"purged": purged,
	})

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"purged": purged,
	})
}
