package users

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fibertrail/fibertrail/internal/platform/httpx"
	"github.com/fibertrail/fibertrail/internal/shared"
)

// Handler exposes the user directory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.list)
}

type userResponse struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// list handles GET /users?role=PROJECTS_ADMIN,ADMIN.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.IdentityFromContext(r.Context()); !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var roles []shared.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			roles = append(roles, shared.Role(strings.TrimSpace(part)))
		}
	}
	items, err := h.service.List(r.Context(), roles)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(items))
	for _, u := range items {
		out = append(out, userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	httpx.JSON(w, http.StatusOK, out)
}
