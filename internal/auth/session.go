package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is used when the configured TTL is not positive.
const DefaultSessionTTL = 24 * time.Hour

// Session is an established login.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	User      Identity
}

// SessionManager issues JWT-backed sessions whose jti is recorded in a
// SessionStore, so a session can be revoked before the token expires.
type SessionManager struct {
	jwt   *JWTService
	store SessionStoreInterface
	ttl   time.Duration
	now   func() time.Time
}

var _ SessionIssuer = (*SessionManager)(nil)

// NewSessionManager creates a session manager.
func NewSessionManager(jwtService *JWTService, store SessionStoreInterface, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		jwt:   jwtService,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL reports the session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for identity and records the session.
func (m *SessionManager) Issue(ctx context.Context, identity *Identity) (*Session, error) {
	if identity == nil || identity.ID == uuid.Nil {
		return nil, errors.New("issue session: missing identity")
	}

	now := m.now()
	sessionID := uuid.New().String()
	token, err := m.jwt.GenerateSessionToken(sessionID, identity, now, m.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	expiresAt := now.Add(m.ttl)
	record := SessionRecord{
		UserID:    identity.ID.String(),
		Email:     identity.Email,
		Role:      identity.Role,
		ExpiresAt: expiresAt,
	}
	if err := m.store.StoreSession(ctx, sessionID, record, m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Session{
		ID:        sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *identity,
	}, nil
}

// Revoke deletes the session behind token. An invalid token is ErrSessionNotFound.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return ErrSessionNotFound
	}
	return m.store.DeleteSession(ctx, claims.ID)
}

// Active reports whether the session named by claims is still recorded for the same user.
func (m *SessionManager) Active(ctx context.Context, claims *Claims) (bool, error) {
	record, err := m.store.GetSession(ctx, claims.ID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.UserID == claims.UserID, nil
}
