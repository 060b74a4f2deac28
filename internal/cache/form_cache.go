package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"formbridge/internal/model"
)

// FormCache handles Redis operations for published forms. Respondent
// reads are the hot path; the cache is invalidated on every write so
// derived data (conversational dialogues) never goes stale.
type FormCache interface {
	Set(ctx context.Context, form *model.Form) error
	Get(ctx context.Context, id string) (*model.Form, error)
	Invalidate(ctx context.Context, id string) error
}

type formCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFormCache creates a new form cache
func NewFormCache(client *redis.Client) FormCache {
	return &formCache{
		client: client,
		ttl:    time.Hour,
	}
}

func (c *formCache) key(id string) string {
	return "form:" + id
}

func (c *formCache) Set(ctx context.Context, form *model.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(form.ID), data, c.ttl).Err()
}

func (c *formCache) Get(ctx context.Context, id string) (*model.Form, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var form model.Form
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *formCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
