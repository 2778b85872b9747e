package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

// Snapshot is what survives a process restart: who is signed in and where
// they were. Summaries are never cached.
type Snapshot struct {
	Identity model.Identity `json:"identity"`
	Path     string         `json:"path"`
}

type IdentityCache interface {
	Save(ctx context.Context, sessionID string, snapshot Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	if c.client == nil {
		return errors.New("redis_not_configured")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(sessionID), data, c.ttl).Err()
}

func (c *RedisCache) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	if c.client == nil {
		return Snapshot{}, false, nil
	}
	value, err := c.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		return Snapshot{}, false, err
	}
	if !snapshot.Identity.Role.Valid() {
		return Snapshot{}, false, fmt.Errorf("cached session %s has invalid role %q", sessionID, snapshot.Identity.Role)
	}
	return snapshot, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, sessionKey(sessionID)).Err()
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("healthdesk:session:%s", sessionID)
}
