package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"formbridge/internal/model"
)

// SessionCache mirrors chat-session snapshots to Redis so active NLP
// conversations can be observed. Entries expire on their own; the
// bridge deletes them on completion.
type SessionCache interface {
	Set(ctx context.Context, session *model.ChatSession) error
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new chat session cache
func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    30 * time.Minute,
	}
}

func (c *sessionCache) key(id string) string {
	return "chat:" + id
}

func (c *sessionCache) Set(ctx context.Context, session *model.ChatSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.ID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.ChatSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
