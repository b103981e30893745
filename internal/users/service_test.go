package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrail/fibertrail/internal/shared"
)

type fakeUserRepo struct {
	users     []User
	lastRoles []shared.Role
}

func (f *fakeUserRepo) Get(_ context.Context, id int64) (User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, roles []shared.Role) ([]User, error) {
	f.lastRoles = roles
	if len(roles) == 0 {
		return f.users, nil
	}
	var out []User
	for _, u := range f.users {
		for _, role := range roles {
			if u.Role == role {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, err := f.Get(context.Background(), id)
	return err == nil, nil
}

func (f *fakeUserRepo) IDsByRole(_ context.Context, role shared.Role) ([]int64, error) {
	var ids []int64
	for _, u := range f.users {
		if u.Role == role {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func TestListDropsUnknownRoles(t *testing.T) {
	repo := &fakeUserRepo{users: []User{
		{ID: 1, Role: shared.RoleAdmin},
		{ID: 2, Role: shared.RoleSales},
		{ID: 3, Role: shared.RoleFinance},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.List(ctx, []shared.Role{shared.RoleSales, "SUPERVISOR"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, []shared.Role{shared.RoleSales}, repo.lastRoles)
}

func TestListAllUnknownRolesMeansNoFilter(t *testing.T) {
	repo := &fakeUserRepo{users: []User{
		{ID: 1, Role: shared.RoleAdmin},
		{ID: 2, Role: shared.RoleSales},
	}}
	svc := NewService(repo)

	got, err := svc.List(context.Background(), []shared.Role{"SUPERVISOR", "INTERN"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, repo.lastRoles)
}
