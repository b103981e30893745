package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// Repository persists users in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, is_active, password_hash, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// FindByEmail fetches a user by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

// List returns active users, optionally restricted to the given roles,
// ordered by name.
func (r *Repository) List(ctx context.Context, roles []shared.Role) ([]User, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(roles) == 0 {
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY name`)
	} else {
		names := make([]string, 0, len(roles))
		for _, role := range roles {
			names = append(names, string(role))
		}
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active AND role = ANY($1) ORDER BY name`, names)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Exists reports whether a user with the id exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

// IDsByRole returns the ids of active users holding the role.
func (r *Repository) IDsByRole(ctx context.Context, role shared.Role) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role=$1 AND is_active`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// EmailExists reports whether an account already uses the email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

// Create inserts a user and returns its id.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, role, is_active, password_hash, created_at)
VALUES ($1, $2, $3, TRUE, $4, NOW()) RETURNING id`,
		u.Email, u.Name, u.Role, u.PasswordHash).Scan(&id)
	return id, err
}
