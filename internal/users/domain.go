package users

import (
	"time"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// User is an account in the system. PasswordHash never leaves the package
// boundary except for credential checks in auth.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         shared.Role
	IsActive     bool
	PasswordHash string
	CreatedAt    time.Time
}
