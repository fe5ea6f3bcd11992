package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

const (
	findSessionSQL = `SELECT token_hash, user_id, expires_at, created_at
		FROM sessions WHERE token_hash = $1`

	createSessionSQL = `INSERT INTO sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)`

	deleteExpiredSessionsSQL = `DELETE FROM sessions WHERE expires_at < $1`

	upsertUserSQL = `INSERT INTO users (id, email, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END`
)

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository implements auth.Repository backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash resolves a hashed bearer token to its session.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, findSessionSQL, hash).
		Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &s, nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	if _, err := r.pool.Exec(ctx, createSessionSQL, s.TokenHash, s.UserID, s.ExpiresAt); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before the given time and
// returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredSessionsSQL, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertUser records the identity-provider user this session belongs to.
func (r *SessionRepository) UpsertUser(ctx context.Context, id, email, fullName string) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, id, email, fullName); err != nil {
		return fmt.Errorf("upserting user %q: %w", id, err)
	}
	return nil
}
