package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// SyncOperation Tests
// ---------------------------------------------------------------------------

func TestNewSyncOperation(t *testing.T) {
	orgID := uuid.New()
	payload := json.RawMessage(`{"name":"Acme"}`)

	t.Run("Valid operation creation", func(t *testing.T) {
		op, err := NewSyncOperation(orgID, EntityTypeCustomer, "cust-1", OperationKindCreate, SyncDirectionPush, payload, PriorityManual)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, op.ID)
		assert.Equal(t, orgID, op.OrganizationID)
		assert.Equal(t, OperationStatusPending, op.Status)
		assert.Equal(t, 0, op.RetryCount)
		assert.Equal(t, PriorityManual, op.Priority)
		assert.NotEmpty(t, op.IdempotencyKey)
		assert.False(t, op.ScheduledAt.After(time.Now()))
	})

	t.Run("Invalid entity type", func(t *testing.T) {
		_, err := NewSyncOperation(orgID, EntityType("GADGET"), "x", OperationKindCreate, SyncDirectionPush, payload, PriorityManual)
		assert.ErrorIs(t, err, ErrInvalidEntityType)
	})

	t.Run("Invalid kind", func(t *testing.T) {
		_, err := NewSyncOperation(orgID, EntityTypeCustomer, "x", OperationKind("MERGE"), SyncDirectionPush, payload, PriorityManual)
		assert.ErrorIs(t, err, ErrInvalidOperationKind)
	})

	t.Run("Empty entity id", func(t *testing.T) {
		_, err := NewSyncOperation(orgID, EntityTypeCustomer, "", OperationKindCreate, SyncDirectionPush, payload, PriorityManual)
		assert.ErrorIs(t, err, ErrEmptyEntityID)
	})

	t.Run("Idempotency key is stable for identical requests", func(t *testing.T) {
		a, err := NewSyncOperation(orgID, EntityTypeCustomer, "cust-1", OperationKindUpdate, SyncDirectionPush, payload, PriorityManual)
		require.NoError(t, err)
		b, err := NewSyncOperation(orgID, EntityTypeCustomer, "cust-1", OperationKindUpdate, SyncDirectionPush, payload, PriorityPolling)
		require.NoError(t, err)
		assert.Equal(t, a.IdempotencyKey, b.IdempotencyKey)
	})

	t.Run("Idempotency key varies with payload", func(t *testing.T) {
		a, _ := NewSyncOperation(orgID, EntityTypeCustomer, "cust-1", OperationKindUpdate, SyncDirectionPush, payload, PriorityManual)
		b, _ := NewSyncOperation(orgID, EntityTypeCustomer, "cust-1", OperationKindUpdate, SyncDirectionPush, json.RawMessage(`{"name":"Other"}`), PriorityManual)
		assert.NotEqual(t, a.IdempotencyKey, b.IdempotencyKey)
	})
}

func TestSyncOperation_Lifecycle(t *testing.T) {
	newOp := func(t *testing.T) *SyncOperation {
		op, err := NewSyncOperation(uuid.New(), EntityTypeInvoice, "inv-1", OperationKindCreate, SyncDirectionPush, json.RawMessage(`{}`), PriorityPolling)
		require.NoError(t, err)
		return op
	}
	policy := BackoffPolicy{Base: 30 * time.Second, Cap: time.Hour, MaxRetries: 5}

	t.Run("Start then succeed", func(t *testing.T) {
		op := newOp(t)
		now := time.Now()
		require.NoError(t, op.Start(now))
		assert.Equal(t, OperationStatusInProgress, op.Status)
		require.NoError(t, op.Succeed(now))
		assert.Equal(t, OperationStatusSucceeded, op.Status)
		assert.NotNil(t, op.CompletedAt)
	})

	t.Run("Start before scheduled time fails", func(t *testing.T) {
		op := newOp(t)
		op.ScheduledAt = time.Now().Add(time.Minute)
		err := op.Start(time.Now())
		assert.ErrorIs(t, err, ErrNotYetDue)
	})

	t.Run("Transient failure reschedules with backoff", func(t *testing.T) {
		op := newOp(t)
		now := time.Now()
		require.NoError(t, op.Start(now))
		require.NoError(t, op.Fail(now, ErrorCategoryTransient, "timeout", policy))
		assert.Equal(t, OperationStatusScheduled, op.Status)
		assert.Equal(t, 1, op.RetryCount)
		assert.Equal(t, ErrorCategoryTransient, op.LastErrorCode)
		assert.True(t, op.ScheduledAt.After(now), "scheduled_at must move into the future")
	})

	t.Run("Validation failure goes dead immediately", func(t *testing.T) {
		op := newOp(t)
		now := time.Now()
		require.NoError(t, op.Start(now))
		require.NoError(t, op.Fail(now, ErrorCategoryValidation, "bad field", policy))
		assert.Equal(t, OperationStatusDead, op.Status)
		assert.Equal(t, 0, op.RetryCount)
	})

	t.Run("Exhausted retries go dead", func(t *testing.T) {
		op := newOp(t)
		op.RetryCount = policy.MaxRetries - 1
		now := time.Now()
		require.NoError(t, op.Start(now))
		require.NoError(t, op.Fail(now, ErrorCategoryTransient, "still down", policy))
		assert.Equal(t, OperationStatusDead, op.Status)
	})

	t.Run("Cancel pending operation", func(t *testing.T) {
		op := newOp(t)
		require.NoError(t, op.Cancel(time.Now()))
		assert.Equal(t, OperationStatusCancelled, op.Status)
	})

	t.Run("Cancel in-progress operation is rejected", func(t *testing.T) {
		op := newOp(t)
		require.NoError(t, op.Start(time.Now()))
		err := op.Cancel(time.Now())
		assert.ErrorIs(t, err, ErrCancelNotAllowed)
	})

	t.Run("Succeed without start is rejected", func(t *testing.T) {
		op := newOp(t)
		err := op.Succeed(time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Revive dead operation", func(t *testing.T) {
		op := newOp(t)
		now := time.Now()
		require.NoError(t, op.Start(now))
		require.NoError(t, op.Fail(now, ErrorCategoryConflict, "bijection violated", policy))
		require.Equal(t, OperationStatusDead, op.Status)

		require.NoError(t, op.Revive(now))
		assert.Equal(t, OperationStatusScheduled, op.Status)
		assert.Equal(t, 0, op.RetryCount)
		assert.Nil(t, op.CompletedAt)
	})

	t.Run("Revive non-dead operation is rejected", func(t *testing.T) {
		op := newOp(t)
		err := op.Revive(time.Now())
		assert.ErrorIs(t, err, ErrOperationNotDead)
	})
}

// ---------------------------------------------------------------------------
// BackoffPolicy Tests
// ---------------------------------------------------------------------------

func TestBackoffPolicy_Delay(t *testing.T) {
	policy := BackoffPolicy{Base: 30 * time.Second, Cap: time.Hour, MaxRetries: 5}

	t.Run("Doubles from base", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, policy.Delay(0))
		assert.Equal(t, time.Minute, policy.Delay(1))
		assert.Equal(t, 2*time.Minute, policy.Delay(2))
		assert.Equal(t, 4*time.Minute, policy.Delay(3))
	})

	t.Run("Caps at one hour", func(t *testing.T) {
		assert.Equal(t, time.Hour, policy.Delay(10))
		assert.Equal(t, time.Hour, policy.Delay(50))
	})

	t.Run("Negative retry count treated as zero", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, policy.Delay(-3))
	})

	t.Run("Jitter stays within the configured band", func(t *testing.T) {
		jittered := BackoffPolicy{Base: 30 * time.Second, Cap: time.Hour, JitterFraction: 0.2, MaxRetries: 5}
		for i := 0; i < 100; i++ {
			d := jittered.Delay(2)
			assert.GreaterOrEqual(t, d, time.Duration(float64(2*time.Minute)*0.8))
			assert.LessOrEqual(t, d, time.Duration(float64(2*time.Minute)*1.2))
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		assert.False(t, policy.Exhausted(4))
		assert.True(t, policy.Exhausted(5))
		assert.True(t, policy.Exhausted(6))
	})
}
