package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityMapping
// ---------------------------------------------------------------------------

// EntityMapping records the correspondence between one local record and its
// counterpart in the ledger system. Within an organization and entity type
// the mapping is bijective: one local id maps to exactly one remote id and
// vice versa. The store rejects writes that would break the bijection with
// ErrMappingConflict.
type EntityMapping struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	LocalID        string
	RemoteID       string
	// RemoteRevision is the ledger system's optimistic concurrency token
	// (SyncToken in QuickBooks terms); sent back on updates.
	RemoteRevision string
	LocalUpdatedAt time.Time
	RemoteUpdatedAt time.Time
	LastSyncedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEntityMapping creates a mapping for a freshly linked pair of records.
func NewEntityMapping(orgID uuid.UUID, entityType EntityType, localID, remoteID, remoteRevision string) (*EntityMapping, error) {
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if localID == "" || remoteID == "" {
		return nil, ErrEmptyEntityID
	}
	now := time.Now()
	return &EntityMapping{
		ID:              uuid.New(),
		OrganizationID:  orgID,
		EntityType:      entityType,
		LocalID:         localID,
		RemoteID:        remoteID,
		RemoteRevision:  remoteRevision,
		LocalUpdatedAt:  now,
		RemoteUpdatedAt: now,
		LastSyncedAt:    now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Touch records a completed sync, advancing the side that changed and the
// revision token returned by the ledger system.
func (m *EntityMapping) Touch(direction SyncDirection, remoteRevision string, now time.Time) {
	switch direction {
	case SyncDirectionPush:
		m.LocalUpdatedAt = now
	case SyncDirectionPull:
		m.RemoteUpdatedAt = now
	}
	if remoteRevision != "" {
		m.RemoteRevision = remoteRevision
	}
	m.LastSyncedAt = now
	m.UpdatedAt = now
}

// HasLocalChanges reports whether the local side changed after the last sync.
func (m *EntityMapping) HasLocalChanges(localUpdatedAt time.Time) bool {
	return localUpdatedAt.After(m.LastSyncedAt)
}

// HasRemoteChanges reports whether the remote side changed after the last sync.
func (m *EntityMapping) HasRemoteChanges(remoteUpdatedAt time.Time) bool {
	return remoteUpdatedAt.After(m.LastSyncedAt)
}

// ---------------------------------------------------------------------------
// MappingStore port
// ---------------------------------------------------------------------------

// MergePolicy tells the store what to do with a Save that would relink an
// already-mapped local or remote id.
type MergePolicy string

const (
	// MergePolicyNone rejects relinks with ErrMappingConflict.
	MergePolicyNone MergePolicy = ""
	// MergePolicyOverwrite unlinks whatever rows currently bind the local
	// or remote id and writes the new pair. Used by operators repairing a
	// mis-matched mapping.
	MergePolicyOverwrite MergePolicy = "OVERWRITE"
)

// MappingStore is the port for the entity mapping table. Implementations
// must enforce the bijection with unique indexes on (org, type, local_id)
// and (org, type, remote_id) and surface violations as ErrMappingConflict.
type MappingStore interface {
	// Save inserts a new mapping or, for an existing (org, type, local_id)
	// row pointing at the same remote id, updates its revision and
	// timestamps. Pointing an existing local id at a different remote id
	// (or vice versa) returns ErrMappingConflict under MergePolicyNone;
	// MergePolicyOverwrite removes the conflicting rows and relinks.
	Save(ctx context.Context, mapping *EntityMapping, policy MergePolicy) error

	FindByLocalID(ctx context.Context, orgID uuid.UUID, entityType EntityType, localID string) (*EntityMapping, error)
	FindByRemoteID(ctx context.Context, orgID uuid.UUID, entityType EntityType, remoteID string) (*EntityMapping, error)
	ListByType(ctx context.Context, orgID uuid.UUID, entityType EntityType, limit, offset int) ([]*EntityMapping, int64, error)

	// Delete removes a mapping when the underlying pair is unlinked, for
	// example after a remote delete propagates.
	Delete(ctx context.Context, orgID uuid.UUID, entityType EntityType, localID string) error
}
