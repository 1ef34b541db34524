package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncBatch
// ---------------------------------------------------------------------------

// SyncBatch groups the operations one coordinator pass drained for a single
// entity type. The coordinator opens a batch only after the type clears its
// readiness check, so a blocked type leaves no batch row behind. A batch
// completes when every claimed operation reaches a terminal attempt; any
// failure downgrades the result to completed-with-errors without aborting
// the rest of the batch.
type SyncBatch struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	Status         BatchStatus
	TotalCount     int
	SucceededCount int
	FailedCount    int
	StartedAt      time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSyncBatch starts a running batch for one entity type. TotalCount grows
// as the coordinator claims chunks into the batch.
func NewSyncBatch(orgID uuid.UUID, entityType EntityType) *SyncBatch {
	now := time.Now()
	return &SyncBatch{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EntityType:     entityType,
		Status:         BatchStatusRunning,
		StartedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// RecordClaimed counts operations claimed into the batch.
func (b *SyncBatch) RecordClaimed(n int, now time.Time) {
	b.TotalCount += n
	b.UpdatedAt = now
}

// RecordSuccess counts one succeeded member operation.
func (b *SyncBatch) RecordSuccess(now time.Time) {
	b.SucceededCount++
	b.UpdatedAt = now
}

// RecordFailure counts one member operation that failed its attempt.
func (b *SyncBatch) RecordFailure(now time.Time) {
	b.FailedCount++
	b.UpdatedAt = now
}

// Complete closes the batch. The result is COMPLETED only when no member
// operation failed.
func (b *SyncBatch) Complete(now time.Time) {
	if b.FailedCount > 0 {
		b.Status = BatchStatusCompletedWithErrors
	} else {
		b.Status = BatchStatusCompleted
	}
	b.CompletedAt = &now
	b.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// SyncRun
// ---------------------------------------------------------------------------

// SyncRun is a history row for one executed operation attempt, kept for
// operator-facing audit of what synced when and how long it took.
type SyncRun struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	OperationID    uuid.UUID
	BatchID        *uuid.UUID
	EntityType     EntityType
	Direction      SyncDirection
	Succeeded      bool
	ErrorCategory  ErrorCategory
	ErrorMessage   string
	Duration       time.Duration
	RanAt          time.Time
}

// ---------------------------------------------------------------------------
// BatchRepository port
// ---------------------------------------------------------------------------

// BatchRepository is the port for batch bookkeeping and run history.
type BatchRepository interface {
	Create(ctx context.Context, batch *SyncBatch) error
	Update(ctx context.Context, batch *SyncBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncBatch, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*SyncBatch, int64, error)

	// RecordRun appends an attempt to the sync history.
	RecordRun(ctx context.Context, run *SyncRun) error
	ListRuns(ctx context.Context, orgID uuid.UUID, operationID *uuid.UUID, limit, offset int) ([]*SyncRun, int64, error)
}
