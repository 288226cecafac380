// Package session provides the Redis-backed session and OAuth state store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStateNotFound   = errors.New("oauth state not found or expired")
)

// Purposes recorded with an OAuth state entry.
const (
	PurposeLogin = "login"
	PurposeLink  = "link"
)

// stateTTL bounds how long an OAuth round trip may take.
const stateTTL = 10 * time.Minute

// Store keeps sessions and short-lived OAuth state in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store with the given session TTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Create starts a new session for the user and returns its opaque ID.
func (s *Store) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(id), userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Get resolves a session ID to the user it belongs to.
func (s *Store) Get(ctx context.Context, sessionID string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, fmt.Errorf("get session: %w", err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return userID, nil
}

// Delete ends a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

// PutOAuthState records a pending OAuth state with its purpose.
func (s *Store) PutOAuthState(ctx context.Context, state, purpose string) error {
	if err := s.client.Set(ctx, stateKey(state), purpose, stateTTL).Err(); err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

// TakeOAuthState consumes a pending OAuth state, returning its purpose.
// A state can only be taken once.
func (s *Store) TakeOAuthState(ctx context.Context, state string) (string, error) {
	purpose, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrStateNotFound
		}
		return "", fmt.Errorf("take oauth state: %w", err)
	}
	return purpose, nil
}

func sessionKey(id string) string  { return "session:" + id }
func stateKey(state string) string { return "oauth:" + state }
