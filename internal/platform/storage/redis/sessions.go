package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusvote/campusvote/internal/domain"
)

// Sessions stores bearer tokens with a TTL. Expiry is Redis's job; a
// vanished key simply means the session is gone.
type Sessions struct {
	client *redis.Client
	prefix string
}

func NewSessions(client *redis.Client, prefix string) *Sessions {
	if prefix == "" {
		prefix = "session"
	}
	return &Sessions{
		client: client,
		prefix: prefix,
	}
}

func (s *Sessions) Create(ctx context.Context, token string, principalID domain.PrincipalID, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(token), string(principalID), ttl).Err(); err != nil {
		return fmt.Errorf("redis sessions: store: %w", err)
	}
	return nil
}

func (s *Sessions) Lookup(ctx context.Context, token string) (domain.PrincipalID, error) {
	val, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis sessions: lookup: %w", err)
	}
	return domain.PrincipalID(val), nil
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis sessions: delete: %w", err)
	}
	return nil
}

func (s *Sessions) key(token string) string {
	return fmt.Sprintf("%s:%s", s.prefix, token)
}

var _ domain.SessionStore = (*Sessions)(nil)
