package notify

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fibertrail/fibertrail/internal/platform/httpx"
	"github.com/fibertrail/fibertrail/internal/shared"
)

// Handler exposes the in-app notification endpoints.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	cache  *CountCache
}

// NewHandler constructs a Handler instance. cache may be nil.
func NewHandler(logger *slog.Logger, repo *Repository, cache *CountCache) *Handler {
	return &Handler{logger: logger, repo: repo, cache: cache}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/unread-count", h.unreadCount)
		r.Patch("/{id}/read", h.markRead)
		r.Patch("/read-all", h.markAllRead)
	})
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	Link      *string   `json:"link"`
	ProjectID *int64    `json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.repo.ListByRecipient(r.Context(), id.UserID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			IsRead:    n.IsRead,
			Link:      n.Link,
			ProjectID: n.ProjectID,
			CreatedAt: n.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	if count, ok := h.cache.Get(r.Context(), id.UserID); ok {
		httpx.JSON(w, http.StatusOK, map[string]int64{"count": count})
		return
	}
	count, err := h.repo.CountUnread(r.Context(), id.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.Set(r.Context(), id.UserID, count)
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	nid, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}
	if err := h.repo.MarkRead(r.Context(), nid, id.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	if err := h.repo.MarkAllRead(r.Context(), id.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.cache.Invalidate(r.Context(), id.UserID)
	w.WriteHeader(http.StatusNoContent)
}
