package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const sessionKeyPrefix = "session:"

// ErrSessionNotFound is returned when a session is unknown, expired or revoked.
var ErrSessionNotFound = errors.New("session not found")

// KeyValueStore is the subset of cache.Client the session store needs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionRecord is what the store keeps per session.
type SessionRecord struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStoreInterface defines the interface for session storage operations.
type SessionStoreInterface interface {
	StoreSession(ctx context.Context, sessionID string, record SessionRecord, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionStore keeps session records in Redis keyed by session ID.
type SessionStore struct {
	kv KeyValueStore
}

// Ensure SessionStore implements SessionStoreInterface
var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a new session store.
func NewSessionStore(kv KeyValueStore) *SessionStore {
	return &SessionStore{kv: kv}
}

// StoreSession saves record for ttl.
func (s *SessionStore) StoreSession(ctx context.Context, sessionID string, record SessionRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.kv.Set(ctx, sessionKeyPrefix+sessionID, payload, ttl)
}

// GetSession returns the record or ErrSessionNotFound.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	data, err := s.kv.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrSessionNotFound
	}

	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &record, nil
}

// DeleteSession removes a session record.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, sessionKeyPrefix+sessionID)
}
