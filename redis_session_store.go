package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key the redis store writes.
const DefaultKeyPrefix = "authkit:"

// RedisSessionStore is the remote SessionStore backend. Layout: one key per
// session (`session:<id>` holding the JSON record with a backend enforced
// TTL) and one set per user (`user_sessions:<userId>` holding session ids).
// Any operation touching both keys runs as a single transactional batch so
// a concurrent reader never observes a session without its index entry or
// vice versa.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore creates a remote store. A zero ttl stores sessions
// without expiry.
func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
	}
}

// WithKeyPrefix overrides the deployment key namespace.
func (s *RedisSessionStore) WithKeyPrefix(prefix string) *RedisSessionStore {
	if prefix != "" {
		s.prefix = prefix
	}
	return s
}

func (s *RedisSessionStore) Create(ctx context.Context, userID string, data map[string]any) (string, error) {
	sessionID := strings.ReplaceAll(uuid.New().String(), "-", "")
	rec := newSessionRecord(sessionID, userID, data)

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sessionID), payload, s.ttl)
		pipe.SAdd(ctx, s.userKey(userID), sessionID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis create session: %w", err)
	}

	return sessionID, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	payload, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	rec := &SessionRecord{}
	if err := json.Unmarshal([]byte(payload), rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return rec, nil
}

// GetByUser reads the user index and fetches each member. Members whose
// record already expired are skipped silently and pruned from the index.
func (s *RedisSessionStore) GetByUser(ctx context.Context, userID string) ([]*SessionRecord, error) {
	members, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read session index: %w", err)
	}

	var out []*SessionRecord
	var stale []any
	for _, sessionID := range members {
		rec, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			stale = append(stale, sessionID)
			continue
		}
		out = append(out, rec)
	}

	if len(stale) > 0 {
		// Best effort cleanup; the index self-heals on the next read anyway.
		s.client.SRem(ctx, s.userKey(userID), stale...)
	}

	return out, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(sessionID))
		pipe.SRem(ctx, s.userKey(rec.UserID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	return nil
}

// DeleteByUser removes every session owned by a user, record and index in
// one batch. The core never calls this; it supports explicit cascade on
// user deletion.
func (s *RedisSessionStore) DeleteByUser(ctx context.Context, userID string) error {
	members, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis read session index: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sessionID := range members {
			pipe.Del(ctx, s.sessionKey(sessionID))
		}
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete user sessions: %w", err)
	}

	return nil
}

// Refresh rewrites updated_at and resets the TTL window. Missing sessions
// are a no-op.
func (s *RedisSessionStore) Refresh(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	rec.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.sessionKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis refresh session: %w", err)
	}

	return nil
}

func (s *RedisSessionStore) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *RedisSessionStore) userKey(userID string) string {
	return s.prefix + "user_sessions:" + userID
}

var _ SessionStore = (*RedisSessionStore)(nil)
