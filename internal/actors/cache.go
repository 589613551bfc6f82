package actors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/redisx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedDirectory fronts another Directory with a short-lived redis entry per
// actor. Redis failures fall through to Next.
type CachedDirectory struct {
	Next  Directory
	Redis *redis.Client
	TTL   time.Duration
	Log   *zap.Logger
}

func (c *CachedDirectory) Resolve(ctx context.Context, id string) (Actor, error) {
	key := fmt.Sprintf(redisx.KeyActor, id)
	if s, err := c.Redis.Get(ctx, key).Result(); err == nil {
		var a Actor
		if err := json.Unmarshal([]byte(s), &a); err == nil {
			return a, nil
		}
	}

	a, err := c.Next.Resolve(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = redisx.TTLActor
	}
	if b, err := json.Marshal(a); err == nil {
		if err := c.Redis.Set(ctx, key, b, ttl).Err(); err != nil && c.Log != nil {
			c.Log.Warn("actor cache set failed", zap.String("actor_id", id), zap.Error(err))
		}
	}
	return a, nil
}
