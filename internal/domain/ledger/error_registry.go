package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ErrorRegistry
// ---------------------------------------------------------------------------

// ErrorEntry aggregates failures by organization, entity type and category
// so operators can see what keeps breaking without trawling the queue. One
// row per (org, entity type, category, fingerprint); repeat failures bump
// the occurrence count.
type ErrorEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	Category       ErrorCategory
	// Fingerprint collapses equivalent failures, typically the error
	// message with volatile parts stripped.
	Fingerprint string
	Message     string
	Occurrences int
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	// Resolved entries stay for history but drop out of the default view.
	Resolved   bool
	ResolvedAt *time.Time
}

// NewErrorEntry creates a registry entry for a first-time failure.
func NewErrorEntry(orgID uuid.UUID, entityType EntityType, category ErrorCategory, fingerprint, message string) *ErrorEntry {
	now := time.Now()
	return &ErrorEntry{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EntityType:     entityType,
		Category:       category,
		Fingerprint:    fingerprint,
		Message:        message,
		Occurrences:    1,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
}

// Recur records another occurrence of an existing failure.
func (e *ErrorEntry) Recur(now time.Time, message string) {
	e.Occurrences++
	e.LastSeenAt = now
	e.Message = message
	if e.Resolved {
		e.Resolved = false
		e.ResolvedAt = nil
	}
}

// Resolve marks the entry handled by an operator.
func (e *ErrorEntry) Resolve(now time.Time) {
	e.Resolved = true
	e.ResolvedAt = &now
}

// ErrorRegistry is the port for failure aggregation.
type ErrorRegistry interface {
	// Record upserts by (org, entity type, category, fingerprint),
	// bumping occurrences on conflict.
	Record(ctx context.Context, entry *ErrorEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*ErrorEntry, error)
	List(ctx context.Context, orgID uuid.UUID, includeResolved bool, limit, offset int) ([]*ErrorEntry, int64, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time) error

	// CountByCategory summarizes unresolved failures for dashboards.
	CountByCategory(ctx context.Context, orgID uuid.UUID) (map[ErrorCategory]int64, error)
}
