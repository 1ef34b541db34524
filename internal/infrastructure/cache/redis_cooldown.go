package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/batchly/backend/internal/domain/ledger"
)

// RedisCoolDown implements CoolDown using Redis. The key's TTL is the
// cool-down window itself, so expiry needs no housekeeping and the gate is
// shared by every worker instance.
type RedisCoolDown struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCoolDownWithClient creates a cool-down gate with an existing Redis client
func NewRedisCoolDownWithClient(client *redis.Client, keyPrefix string) *RedisCoolDown {
	if keyPrefix == "" {
		keyPrefix = "sync:cooldown:"
	}
	return &RedisCoolDown{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Arm starts or extends the organization's cool-down window
func (c *RedisCoolDown) Arm(ctx context.Context, orgID uuid.UUID, d time.Duration) error {
	key := c.keyPrefix + orgID.String()
	if err := c.client.Set(ctx, key, "1", d).Err(); err != nil {
		return fmt.Errorf("failed to arm cool-down: %w", err)
	}
	return nil
}

// Active reports whether the organization is currently cooling down
func (c *RedisCoolDown) Active(ctx context.Context, orgID uuid.UUID) (bool, error) {
	key := c.keyPrefix + orgID.String()
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cool-down: %w", err)
	}
	return exists > 0, nil
}

// Ensure RedisCoolDown implements CoolDown
var _ ledger.CoolDown = (*RedisCoolDown)(nil)
