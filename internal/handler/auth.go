package handler

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

// userIDKey is the context key for the authenticated user id.
type userIDKey struct{}

// UserID extracts the authenticated user id from the context. It returns an
// empty string outside the session middleware.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SessionStore is the persistence surface the SessionManager needs: session
// lookup/creation plus the user upsert performed at issuance.
type SessionStore interface {
	auth.Repository
	UpsertUser(ctx context.Context, id, email, fullName string) error
}

// SessionManager authenticates requests via HMAC-SHA256 hashed bearer tokens
// and issues sessions on behalf of the external identity provider.
type SessionManager struct {
	store        SessionStore
	pepper       []byte
	issuerSecret string
	ttl          time.Duration
	now          func() time.Time
}

// NewSessionManager creates a SessionManager. issuerSecret guards the
// session-issuance endpoint; pepper keys the token HMAC.
func NewSessionManager(store SessionStore, pepper []byte, issuerSecret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		store:        store,
		pepper:       pepper,
		issuerSecret: issuerSecret,
		ttl:          ttl,
		now:          time.Now,
	}
}

// hash computes the HMAC-SHA256 of a session token.
func (m *SessionManager) hash(token string) string {
	mac := hmac.New(sha256.New, m.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Middleware authenticates the request. Requests without a valid, unexpired
// session token receive 401 before any handler runs.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		hash := m.hash(token)
		session, err := m.store.FindByTokenHash(r.Context(), hash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded.
		stored, err := hex.DecodeString(session.TokenHash)
		if err != nil || subtle.ConstantTimeCompare([]byte(hash), []byte(hex.EncodeToString(stored))) != 1 {
			respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		if session.Expired(m.now()) {
			respondError(w, http.StatusUnauthorized, "session expired")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Issue mints a session token for the given user, persisting only its hash.
func (m *SessionManager) Issue(ctx context.Context, userID, email, fullName string) (token string, expiresAt time.Time, err error) {
	if err := m.store.UpsertUser(ctx, userID, email, fullName); err != nil {
		return "", time.Time{}, errors.Wrap(err, "upsert user")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, errors.Wrap(err, "generate token")
	}
	token = hex.EncodeToString(buf)
	expiresAt = m.now().Add(m.ttl)

	err = m.store.Create(ctx, &auth.Session{
		TokenHash: m.hash(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "create session")
	}
	return token, expiresAt, nil
}

// VerifyIssuer checks the shared secret the identity-provider callback must
// present to mint sessions.
func (m *SessionManager) VerifyIssuer(secret string) bool {
	return m.issuerSecret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(m.issuerSecret)) == 1
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("X-Session-Token")
}

type issueSessionRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type issueSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issueSession exchanges an identity-provider callback (authenticated with
// the shared issuer secret) for a storefront session token.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.VerifyIssuer(r.Header.Get("X-Issuer-Secret")) {
		respondError(w, http.StatusUnauthorized, "invalid issuer secret")
		return
	}

	var req issueSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "user_id and email are required")
		return
	}

	token, expiresAt, err := h.sessions.Issue(r.Context(), req.UserID, req.Email, req.FullName)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, issueSessionResponse{Token: token, ExpiresAt: expiresAt})
}
