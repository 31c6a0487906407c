package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"student-dashboard/internal/shared/telemetry"
)

const redisKeyPrefix = "session:"

// hashClient is the subset of *redis.Client the store needs.
type hashClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each session as a hash with auth_token and auth_user fields.
type RedisStore struct {
	client hashClient
	ttl    time.Duration
}

// NewRedisStore wraps a redis client. Sessions expire after ttl when positive.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load reads the session hash. Missing or unreadable fields read as ErrNoSession.
func (s *RedisStore) Load(ctx context.Context, sid string) (Session, error) {
	if !validSID(sid) {
		return Session{}, ErrNoSession
	}
	entries, err := s.client.HGetAll(ctx, redisKeyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(entries) == 0) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis load session: %w", err)
	}
	sess, err := decode(entries)
	if err != nil {
		telemetry.Warn("session.corrupted", map[string]any{"backend": "redis", "err": err})
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save writes both entries and refreshes the expiry.
func (s *RedisStore) Save(ctx context.Context, sid string, sess Session) error {
	if !validSID(sid) {
		return errors.New("invalid session id")
	}
	entries, err := encode(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := redisKeyPrefix + sid
	if err := s.client.HSet(ctx, key, KeyToken, entries[KeyToken], KeyUser, entries[KeyUser]).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire session: %w", err)
		}
	}
	return nil
}

// Clear deletes the session hash.
func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	if !validSID(sid) {
		return nil
	}
	if err := s.client.Del(ctx, redisKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
