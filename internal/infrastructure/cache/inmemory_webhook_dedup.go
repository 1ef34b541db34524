package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/batchly/backend/internal/domain/ledger"
)

// entry represents a stored event ID with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryWebhookDeduplicator implements WebhookDeduplicator using an
// in-memory map. This is suitable for single-instance deployments and
// testing; in distributed deployments the durable webhook log still
// catches the duplicates this cache misses.
type InMemoryWebhookDeduplicator struct {
	mu        sync.Mutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryWebhookDeduplicator creates a new in-memory deduplicator
// It starts a background goroutine to clean up expired entries
func NewInMemoryWebhookDeduplicator() *InMemoryWebhookDeduplicator {
	d := &InMemoryWebhookDeduplicator{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.cleanupLoop()

	return d
}

// Seen atomically records the event id and reports whether it was already present
func (d *InMemoryWebhookDeduplicator) Seen(ctx context.Context, orgID uuid.UUID, eventID string, ttl time.Duration) (bool, error) {
	key := orgID.String() + ":" + eventID

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, exists := d.entries[key]; exists && time.Now().Before(e.expiresAt) {
		return true, nil
	}

	d.entries[key] = entry{expiresAt: time.Now().Add(ttl)}
	return false, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (d *InMemoryWebhookDeduplicator) Close() error {
	d.closeOnce.Do(func() {
		close(d.stopChan)
		d.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (d *InMemoryWebhookDeduplicator) cleanupLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.cleanup()
		}
	}
}

// cleanup removes expired entries
func (d *InMemoryWebhookDeduplicator) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for key, e := range d.entries {
		if now.After(e.expiresAt) {
			delete(d.entries, key)
		}
	}
}

// Size returns the number of entries (for testing/monitoring)
func (d *InMemoryWebhookDeduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Ensure InMemoryWebhookDeduplicator implements WebhookDeduplicator
var _ ledger.WebhookDeduplicator = (*InMemoryWebhookDeduplicator)(nil)
