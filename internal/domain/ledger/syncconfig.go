package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntitySyncConfig holds per-entity-type sync settings for an organization:
// whether the type syncs at all, in which directions, and how often the
// polling pull runs.
type EntitySyncConfig struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	EntityType      EntityType
	Enabled         bool
	DirectionPolicy DirectionPolicy
	// PollInterval drives the scheduled pull for this type; zero disables
	// polling while webhooks keep working.
	PollInterval time.Duration
	LastPolledAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DefaultEntitySyncConfig returns the config used when an organization has
// not customized a type: enabled, bidirectional, polled every 15 minutes.
func DefaultEntitySyncConfig(orgID uuid.UUID, entityType EntityType) *EntitySyncConfig {
	now := time.Now()
	return &EntitySyncConfig{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		EntityType:      entityType,
		Enabled:         true,
		DirectionPolicy: DirectionPolicyBidirectional,
		PollInterval:    15 * time.Minute,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AllowsDirection reports whether this type may sync in the direction.
func (c *EntitySyncConfig) AllowsDirection(d SyncDirection) bool {
	return c.Enabled && c.DirectionPolicy.Allows(d)
}

// PollDue reports whether a scheduled pull should run now.
func (c *EntitySyncConfig) PollDue(now time.Time) bool {
	if !c.Enabled || c.PollInterval <= 0 || !c.DirectionPolicy.Allows(SyncDirectionPull) {
		return false
	}
	if c.LastPolledAt == nil {
		return true
	}
	return now.Sub(*c.LastPolledAt) >= c.PollInterval
}

// MarkPolled records a completed poll.
func (c *EntitySyncConfig) MarkPolled(now time.Time) {
	c.LastPolledAt = &now
	c.UpdatedAt = now
}

// SyncConfigRepository is the port for per-entity sync configuration.
type SyncConfigRepository interface {
	// FindByEntityType returns the stored config or the default when the
	// organization has not customized this type.
	FindByEntityType(ctx context.Context, orgID uuid.UUID, entityType EntityType) (*EntitySyncConfig, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*EntitySyncConfig, error)
	Save(ctx context.Context, cfg *EntitySyncConfig) error
}
