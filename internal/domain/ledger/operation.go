package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// OperationIdempotencyKey derives the dedup key for an enqueue request.
// Two requests naming the same organization, entity, kind, direction and
// payload collapse into one queued operation while the first is outstanding.
func OperationIdempotencyKey(orgID uuid.UUID, entityType EntityType, entityID string, kind OperationKind, direction SyncDirection, payload json.RawMessage) string {
	sum := sha256.Sum256(payload)
	raw := fmt.Sprintf("%s:%s:%s:%s:%s:%s", orgID, entityType, entityID, kind, direction, hex.EncodeToString(sum[:]))
	keyed := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(keyed[:])
}

// ---------------------------------------------------------------------------
// BackoffPolicy
// ---------------------------------------------------------------------------

// BackoffPolicy computes retry delays for failed operations. Delay grows
// exponentially from Base up to Cap, with symmetric jitter of
// JitterFraction applied to break thundering herds.
type BackoffPolicy struct {
	Base           time.Duration
	Cap            time.Duration
	JitterFraction float64
	MaxRetries     int
}

// DefaultBackoffPolicy returns the production backoff schedule:
// 30s, 1m, 2m, 4m, ... capped at 1h, up to 5 retries.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:           30 * time.Second,
		Cap:            time.Hour,
		JitterFraction: 0.2,
		MaxRetries:     5,
	}
}

// Delay returns the wait before attempt retryCount+1. retryCount is the
// number of attempts already failed, so the first retry uses Base.
func (p BackoffPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := p.Base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.Cap {
			d = p.Cap
			break
		}
	}
	if p.JitterFraction > 0 {
		// jitter in [-fraction, +fraction] of the raw delay
		j := (rand.Float64()*2 - 1) * p.JitterFraction
		d = time.Duration(float64(d) * (1 + j))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Exhausted returns true when retryCount has used up the retry budget.
func (p BackoffPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// ---------------------------------------------------------------------------
// SyncOperation
// ---------------------------------------------------------------------------

// SyncOperation is one durable unit of sync work. Operations are enqueued
// idempotently (organization + entity + kind + direction + payload hash),
// claimed by workers with an atomic status transition, and retried with
// exponential backoff until they succeed, get cancelled, or go dead.
type SyncOperation struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntityType     EntityType
	EntityID       string
	Kind           OperationKind
	Direction      SyncDirection
	Status         OperationStatus
	Priority       int
	Payload        json.RawMessage
	IdempotencyKey string
	BatchID        *uuid.UUID
	RetryCount     int
	ScheduledAt    time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastError      string
	LastErrorCode  ErrorCategory
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSyncOperation creates a pending operation scheduled for immediate pickup.
func NewSyncOperation(orgID uuid.UUID, entityType EntityType, entityID string, kind OperationKind, direction SyncDirection, payload json.RawMessage, priority int) (*SyncOperation, error) {
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	if !kind.IsValid() {
		return nil, ErrInvalidOperationKind
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	if entityID == "" {
		return nil, ErrEmptyEntityID
	}
	now := time.Now()
	return &SyncOperation{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EntityType:     entityType,
		EntityID:       entityID,
		Kind:           kind,
		Direction:      direction,
		Status:         OperationStatusPending,
		Priority:       priority,
		Payload:        payload,
		IdempotencyKey: OperationIdempotencyKey(orgID, entityType, entityID, kind, direction, payload),
		ScheduledAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Start transitions the operation to in-progress. Only pending or scheduled
// operations whose scheduled_at has passed may be started; the repository
// enforces the same rule atomically at claim time.
func (o *SyncOperation) Start(now time.Time) error {
	if o.Status != OperationStatusPending && o.Status != OperationStatusScheduled {
		return ErrInvalidTransition
	}
	if now.Before(o.ScheduledAt) {
		return ErrNotYetDue
	}
	o.Status = OperationStatusInProgress
	o.StartedAt = &now
	o.UpdatedAt = now
	return nil
}

// Succeed marks the operation completed.
func (o *SyncOperation) Succeed(now time.Time) error {
	if o.Status != OperationStatusInProgress {
		return ErrInvalidTransition
	}
	o.Status = OperationStatusSucceeded
	o.CompletedAt = &now
	o.LastError = ""
	o.LastErrorCode = ""
	o.UpdatedAt = now
	return nil
}

// Fail records a failed attempt. Retryable categories requeue the operation
// with backoff; non-retryable categories and an exhausted retry budget bury
// it in the dead letter state.
func (o *SyncOperation) Fail(now time.Time, category ErrorCategory, message string, policy BackoffPolicy) error {
	if o.Status != OperationStatusInProgress {
		return ErrInvalidTransition
	}
	o.LastError = message
	o.LastErrorCode = category
	o.UpdatedAt = now

	if !category.IsRetryable() || policy.Exhausted(o.RetryCount+1) {
		o.Status = OperationStatusDead
		o.CompletedAt = &now
		return nil
	}

	o.RetryCount++
	o.Status = OperationStatusScheduled
	o.ScheduledAt = now.Add(policy.Delay(o.RetryCount - 1))
	return nil
}

// Cancel withdraws an operation that has not started executing.
func (o *SyncOperation) Cancel(now time.Time) error {
	if o.Status != OperationStatusPending && o.Status != OperationStatusScheduled {
		return ErrCancelNotAllowed
	}
	o.Status = OperationStatusCancelled
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// Revive returns a dead operation to the queue with a fresh retry budget.
func (o *SyncOperation) Revive(now time.Time) error {
	if o.Status != OperationStatusDead {
		return ErrOperationNotDead
	}
	o.Status = OperationStatusScheduled
	o.RetryCount = 0
	o.ScheduledAt = now
	o.CompletedAt = nil
	o.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// OperationRepository port
// ---------------------------------------------------------------------------

// OperationFilter narrows listing queries over the operation queue.
type OperationFilter struct {
	OrganizationID *uuid.UUID
	EntityType     *EntityType
	Status         *OperationStatus
	Direction      *SyncDirection
	BatchID        *uuid.UUID
	SortBy         string
	SortDir        string
	Limit          int
	Offset         int
}

// OperationRepository is the port for the durable sync operation queue.
type OperationRepository interface {
	// Enqueue persists a new operation. When an outstanding operation with
	// the same idempotency key exists it returns that operation and
	// ErrDuplicateOperation instead of inserting.
	Enqueue(ctx context.Context, op *SyncOperation) (*SyncOperation, error)

	// DequeueReady atomically claims up to limit due operations of one
	// entity type for the organization. At most one operation per
	// (organization, entity type, entity id) may be in progress: claims
	// skip entity ids that already have an in-progress operation, and the
	// claim itself re-asserts that no such row appeared in the meantime.
	// Claimed operations come back in in-progress status.
	DequeueReady(ctx context.Context, orgID uuid.UUID, entityType EntityType, now time.Time, limit int) ([]*SyncOperation, error)

	// Update persists lifecycle transitions made on the aggregate.
	Update(ctx context.Context, op *SyncOperation) error

	FindByID(ctx context.Context, id uuid.UUID) (*SyncOperation, error)
	FindByIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string) (*SyncOperation, error)
	List(ctx context.Context, filter OperationFilter) ([]*SyncOperation, int64, error)

	// CountOutstanding reports queue depth per entity type for an
	// organization, used by the coordinator for readiness checks.
	CountOutstanding(ctx context.Context, orgID uuid.UUID) (map[EntityType]int64, error)

	// ListDead returns dead-lettered operations for operator review.
	ListDead(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*SyncOperation, int64, error)
}
