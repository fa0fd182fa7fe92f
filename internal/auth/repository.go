package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultQueryTimeout = 5 * time.Second

	userColumns = "id, email, password_hash, display_name, is_admin, created_at, updated_at"

	uniqueViolation = "23505"
)

// Repository stores users and refresh tokens in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts a user. A taken email yields ErrEmailAlreadyExists.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string, displayName *string, isAdmin bool) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (email, password_hash, display_name, is_admin)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns+`;`, email, passwordHash, displayName, isAdmin)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailAlreadyExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindUserByEmail fetches a user by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return r.findUser(ctx, "email", email)
}

// FindUserByID fetches a user by primary key.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.findUser(ctx, "id", id)
}

// findUser looks a user up by one unique column.
func (r *Repository) findUser(ctx context.Context, column string, value any) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1;`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user by %s: %w", column, err)
	}
	return user, nil
}

// StoreRefreshToken saves a refresh token hash, re-arming it if it was seen before.
func (r *Repository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, token_hash)
DO UPDATE SET expires_at = EXCLUDED.expires_at, revoked_at = NULL, created_at = NOW();`,
		userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// RevokeToken marks a refresh token as revoked. Unknown tokens are ignored.
func (r *Repository) RevokeToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `
UPDATE refresh_tokens
SET revoked_at = NOW()
WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL;`, userID, tokenHash); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
