package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrSessionNotFound is returned when a session token does not resolve to an
// active session.
var ErrSessionNotFound = errors.New("session not found")

// Session ties a hashed bearer token to a user. Tokens are stored only as
// HMAC-SHA256 hashes; the plaintext never touches the database.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Repository defines persistence operations for sessions.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
	Create(ctx context.Context, s *Session) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
