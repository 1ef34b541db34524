package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/config"
)

// SyncCacheFactory creates the webhook deduplicator and the rate-limit
// cool-down gate based on configuration. Both prefer Redis so state is
// shared across worker instances, with an optional in-memory fallback for
// single-instance deployments.
type SyncCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SyncCacheFactoryOption is a functional option for configuring the factory
type SyncCacheFactoryOption func(*SyncCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SyncCacheFactoryOption {
	return func(f *SyncCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) SyncCacheFactoryOption {
	return func(f *SyncCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSyncCacheFactory creates a new factory
func NewSyncCacheFactory(cfg config.RedisConfig, opts ...SyncCacheFactoryOption) *SyncCacheFactory {
	f := &SyncCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateDeduplicator creates a webhook deduplicator, trying Redis first.
// In-memory fallback is safe here only because the durable webhook log
// still catches the duplicates the cache misses.
func (f *SyncCacheFactory) CreateDeduplicator() (ledger.WebhookDeduplicator, error) {
	dedup, err := NewRedisWebhookDeduplicator(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis webhook deduplicator")
		return dedup, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for webhook dedup but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook dedup. "+
		"Duplicate deliveries will only be caught by the durable event log.",
		zap.Error(err),
	)
	return NewInMemoryWebhookDeduplicator(), nil
}

// CreateCoolDown creates the organization cool-down gate, trying Redis first
func (f *SyncCacheFactory) CreateCoolDown() (ledger.CoolDown, error) {
	dedup, err := NewRedisWebhookDeduplicator(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis cool-down gate")
		return NewRedisCoolDownWithClient(dedup.GetClient(), ""), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for cool-down gate but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cool-down gate. "+
		"Rate-limit back-off will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryCoolDown(), nil
}
