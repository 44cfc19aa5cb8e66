package users

import (
	"context"
	"errors"
	"strings"

	"rollcall/internal/auth"
)

var (
	// ErrEmailTaken means the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidRole means a role outside FACULTY/STUDENT was requested.
	ErrInvalidRole = errors.New("role must be STUDENT or FACULTY")
	// ErrPasswordTooShort means the password misses the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
)

// Registrar is the persistence surface the service needs.
type Registrar interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, string, error)
}

// Service handles registration and credential verification.
type Service struct {
	repo           Registrar
	minPasswordLen int
}

// NewService creates a service backed by a repository.
func NewService(repo Registrar, minPasswordLen int) *Service {
	if minPasswordLen <= 0 {
		minPasswordLen = 6
	}
	return &Service{repo: repo, minPasswordLen: minPasswordLen}
}

// Register creates a new account. Role is immutable once assigned.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != auth.RoleFaculty && role != auth.RoleStudent {
		return nil, ErrInvalidRole
	}
	if len(password) < s.minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), hash, role)
}

// Login verifies credentials and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, hash, err := s.repo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.VerifyPassword(password, hash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
