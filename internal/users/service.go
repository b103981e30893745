package users

import (
	"context"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// RepositoryPort is the persistence contract the service depends on.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, roles []shared.Role) ([]User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	IDsByRole(ctx context.Context, role shared.Role) ([]int64, error)
}

// Service answers user directory queries for the rest of the application.
type Service struct {
	repo RepositoryPort
}

// NewService wires the user service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns active users filtered by role. Unknown role names in the
// filter are dropped; a filter with no known roles lists everyone.
func (s *Service) List(ctx context.Context, roles []shared.Role) ([]User, error) {
	known := roles[:0:0]
	for _, role := range roles {
		if role.Valid() {
			known = append(known, role)
		}
	}
	return s.repo.List(ctx, known)
}

// Get fetches one user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether the user id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// IDsByRole returns ids of active users holding the role.
func (s *Service) IDsByRole(ctx context.Context, role shared.Role) ([]int64, error) {
	return s.repo.IDsByRole(ctx, role)
}
