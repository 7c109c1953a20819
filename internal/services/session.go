package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionStore maps opaque bearer tokens to user ids in Redis. It is the
// identity provider the HTTP layer consults.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create starts a session for userID. Any previous session of the user is
// invalidated so the expiry always counts from the latest sign-in.
func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	// Generate secure session token
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sessionToken, userID, s.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+userID, sessionToken, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	return sessionToken, nil
}

// ResolveUser returns the user id behind token, or "" when the token is
// empty, unknown or expired.
func (s *SessionStore) ResolveUser(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", nil
	}

	userID, err := s.client.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

// Invalidate removes a session from Redis
func (s *SessionStore) Invalidate(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + sessionToken

	// Get user ID before deleting
	userID, err := s.client.Get(ctx, sessionKey).Result()
	if err == nil && userID != "" {
		s.client.Del(ctx, UserSessionKeyPrefix+userID)
	}

	return s.client.Del(ctx, sessionKey).Err()
}

// InvalidateUser drops the user's current session, if any.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID string) error {
	userSessionKey := UserSessionKeyPrefix + userID

	sessionToken, err := s.client.Get(ctx, userSessionKey).Result()
	if err == nil && sessionToken != "" {
		s.client.Del(ctx, SessionKeyPrefix+sessionToken)
	}

	return s.client.Del(ctx, userSessionKey).Err()
}
