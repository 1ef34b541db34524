package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LocalRecord is the portal-side copy of a mirrored entity. The sync engine
// treats local storage as schemaless: each record is an opaque JSON document
// keyed by organization, entity type and local id.
type LocalRecord struct {
	OrganizationID uuid.UUID
	EntityType     EntityType
	LocalID        string
	Payload        json.RawMessage
	Deleted        bool
	UpdatedAt      time.Time
}

// LocalStore is the port for the portal's own records. Pull operations
// write through it; push operations read from it when the queued payload
// needs re-reading at execution time.
type LocalStore interface {
	Get(ctx context.Context, orgID uuid.UUID, entityType EntityType, localID string) (*LocalRecord, error)

	// Upsert writes the record, creating it when absent. Pull-side writes
	// come through here after conflict resolution.
	Upsert(ctx context.Context, record *LocalRecord) error

	// MarkDeleted tombstones the record when a remote delete propagates.
	MarkDeleted(ctx context.Context, orgID uuid.UUID, entityType EntityType, localID string, deletedAt time.Time) error
}

// CoolDown is the port for the organization-wide rate-limit gate. When the
// ledger system throttles any operation, the whole organization backs off
// instead of hammering the API one operation at a time.
type CoolDown interface {
	// Arm starts or extends the organization's cool-down window.
	Arm(ctx context.Context, orgID uuid.UUID, d time.Duration) error

	// Active reports whether the organization is currently cooling down.
	Active(ctx context.Context, orgID uuid.UUID) (bool, error)
}
