package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// User is an account holder, either FACULTY or STUDENT.
type User struct {
	ID        int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists users and refresh tokens in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user; a duplicate email surfaces as ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, name, email, role, created_at`, name, email, passwordHash, role)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

// ByEmail returns a user and their credential hash, or nil when absent.
func (r *Repository) ByEmail(ctx context.Context, email string) (*User, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, role, created_at, password_hash
		FROM users WHERE email = $1`, email)
	var u User
	var hash string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &u, hash, nil
}

// ByID returns a user or nil.
func (r *Repository) ByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, role, created_at
		FROM users WHERE user_id = $1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SaveRefreshToken stores a refresh token's jti for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)`, jti, userID, expiresAt)
	return err
}

// RefreshTokenUsable reports whether a jti is known, unexpired and unrevoked.
func (r *Repository) RefreshTokenUsable(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM refresh_tokens
		WHERE jti = $1 AND NOT revoked AND expires_at > NOW()`, jti).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeRefreshToken marks a jti revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1`, jti)
	return err
}
