package auth

import (
	"net/http"
	"strings"

	"github.com/fibertrail/fibertrail/internal/platform/httpx"
	"github.com/fibertrail/fibertrail/internal/shared"
)

// RequireAuth verifies the bearer token and attaches the caller identity to
// the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		id, err := s.ParseToken(raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}
