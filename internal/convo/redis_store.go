package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const conversationKeyPrefix = "convo:"

// RedisStore persists conversation state in Redis so chat sessions
// survive process restarts and can be shared across replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func conversationKey(id string) string {
	return conversationKeyPrefix + id
}

// Get returns the conversation or ErrConversationNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (*Conversation, error) {
	data, err := s.rdb.Get(ctx, conversationKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("convo: redis get: %w", err)
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("convo: unmarshal conversation: %w", err)
	}
	return &c, nil
}

// Save stores the conversation and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("convo: conversation id required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("convo: marshal conversation: %w", err)
	}
	if err := s.rdb.Set(ctx, conversationKey(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("convo: redis set: %w", err)
	}
	return nil
}

// Delete removes the conversation if present.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, conversationKey(id)).Err(); err != nil {
		return fmt.Errorf("convo: redis del: %w", err)
	}
	return nil
}
