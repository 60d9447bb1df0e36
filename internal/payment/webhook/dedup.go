package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryCache remembers webhook delivery ids that were already handled so a
// redelivery can be acknowledged without touching the ledger.
type DeliveryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewDeliveryCache creates a delivery cache. Entries expire after ttl.
func NewDeliveryCache(redisClient *redis.Client, ttl time.Duration) *DeliveryCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryCache{redis: redisClient, ttl: ttl}
}

func deliveryKey(id string) string {
	return fmt.Sprintf("webhook:delivery:%s", id)
}

// Seen reports whether the delivery id was already handled
func (c *DeliveryCache) Seen(ctx context.Context, deliveryID string) (bool, error) {
	if c == nil || c.redis == nil || deliveryID == "" {
		return false, nil
	}

	err := c.redis.Get(ctx, deliveryKey(deliveryID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remember marks the delivery id as handled
func (c *DeliveryCache) Remember(ctx context.Context, deliveryID string) error {
	if c == nil || c.redis == nil || deliveryID == "" {
		return nil
	}
	return c.redis.Set(ctx, deliveryKey(deliveryID), time.Now().UTC().Format(time.RFC3339), c.ttl).Err()
}
