package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fibertrail/fibertrail/internal/shared"
	"github.com/fibertrail/fibertrail/internal/users"
)

// tokenTTL is the access token lifetime.
const tokenTTL = 7 * 24 * time.Hour

// UserStore is the account persistence the auth service depends on.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u users.User) (int64, error)
	Get(ctx context.Context, id int64) (users.User, error)
}

// Service handles credential checks and token issuance.
type Service struct {
	store  UserStore
	secret []byte
}

// NewService wires the auth service. secret signs access tokens.
func NewService(store UserStore, secret string) *Service {
	return &Service{store: store, secret: []byte(secret)}
}

// Authenticate verifies the email/password pair against the stored hash.
// Inactive accounts cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !u.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return u, nil
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string, role shared.Role) (users.User, error) {
	if !role.Valid() {
		return users.User{}, fmt.Errorf("unknown role %q: %w", role, shared.ErrInvalidInput)
	}
	taken, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return users.User{}, err
	}
	if taken {
		return users.User{}, fmt.Errorf("email already registered: %w", shared.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return users.User{}, err
	}
	id, err := s.store.Create(ctx, users.User{
		Email:        email,
		Name:         name,
		Role:         role,
		IsActive:     true,
		PasswordHash: string(hash),
	})
	if err != nil {
		return users.User{}, err
	}
	return s.store.Get(ctx, id)
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for the user.
func (s *Service) IssueToken(u users.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	return token.SignedString(s.secret)
}

// ParseToken verifies a token and returns the caller identity.
func (s *Service) ParseToken(raw string) (shared.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	role := shared.Role(c.Role)
	if !role.Valid() {
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	return shared.Identity{UserID: userID, Email: c.Email, Role: role}, nil
}
