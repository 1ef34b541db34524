package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/batchly/backend/internal/domain/ledger"
)

// InMemoryCoolDown implements CoolDown using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryCoolDown struct {
	mu      sync.Mutex
	windows map[uuid.UUID]time.Time
}

// NewInMemoryCoolDown creates a new in-memory cool-down gate
func NewInMemoryCoolDown() *InMemoryCoolDown {
	return &InMemoryCoolDown{
		windows: make(map[uuid.UUID]time.Time),
	}
}

// Arm starts or extends the organization's cool-down window
func (c *InMemoryCoolDown) Arm(ctx context.Context, orgID uuid.UUID, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	until := time.Now().Add(d)
	if existing, ok := c.windows[orgID]; !ok || until.After(existing) {
		c.windows[orgID] = until
	}
	return nil
}

// Active reports whether the organization is currently cooling down
func (c *InMemoryCoolDown) Active(ctx context.Context, orgID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	until, ok := c.windows[orgID]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(c.windows, orgID)
		return false, nil
	}
	return true, nil
}

// Ensure InMemoryCoolDown implements CoolDown
var _ ledger.CoolDown = (*InMemoryCoolDown)(nil)
