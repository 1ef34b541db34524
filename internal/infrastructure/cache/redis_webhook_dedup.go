package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/batchly/backend/internal/domain/ledger"
)

// RedisWebhookDeduplicator implements WebhookDeduplicator using Redis.
// This is the fast-path dedup check in front of the durable webhook log,
// suitable for distributed deployments where multiple instances receive
// deliveries for the same organization.
type RedisWebhookDeduplicator struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisWebhookDeduplicator creates a new Redis-based webhook deduplicator
func NewRedisWebhookDeduplicator(cfg RedisConfig) (*RedisWebhookDeduplicator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisWebhookDeduplicator{
		client:    client,
		keyPrefix: "webhook:dedup:",
	}, nil
}

// NewRedisWebhookDeduplicatorWithClient creates a deduplicator with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisWebhookDeduplicatorWithClient(client *redis.Client, keyPrefix string) *RedisWebhookDeduplicator {
	if keyPrefix == "" {
		keyPrefix = "webhook:dedup:"
	}
	return &RedisWebhookDeduplicator{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Seen atomically records the event id and reports whether it was already
// present. Uses SETNX so concurrent deliveries of the same event race
// safely: exactly one caller observes false.
func (d *RedisWebhookDeduplicator) Seen(ctx context.Context, orgID uuid.UUID, eventID string, ttl time.Duration) (bool, error) {
	key := d.keyPrefix + orgID.String() + ":" + eventID

	set, err := d.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event id: %w", err)
	}

	return !set, nil
}

// Close closes the Redis client
func (d *RedisWebhookDeduplicator) Close() error {
	return d.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (d *RedisWebhookDeduplicator) GetClient() *redis.Client {
	return d.client
}

// Ensure RedisWebhookDeduplicator implements WebhookDeduplicator
var _ ledger.WebhookDeduplicator = (*RedisWebhookDeduplicator)(nil)
