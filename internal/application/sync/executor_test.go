package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
)

type executorFixture struct {
	operations  *MockOperationRepository
	mappings    *MockMappingStore
	connections *MockConnectionRepository
	fieldMaps   *MockFieldMappingRepository
	client      *MockLedgerClient
	tokens      *MockTokenSource
	local       *MockLocalStore
	registry    *MockErrorRegistry
	batches     *MockBatchRepository
	coolDown    *MockCoolDown
	executor    *Executor
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		operations:  new(MockOperationRepository),
		mappings:    new(MockMappingStore),
		connections: new(MockConnectionRepository),
		fieldMaps:   new(MockFieldMappingRepository),
		client:      new(MockLedgerClient),
		tokens:      new(MockTokenSource),
		local:       new(MockLocalStore),
		registry:    new(MockErrorRegistry),
		batches:     new(MockBatchRepository),
		coolDown:    new(MockCoolDown),
	}
	f.executor = NewExecutor(
		f.operations, f.mappings, f.connections, f.fieldMaps,
		f.client, f.tokens, f.local, f.registry, f.batches, f.coolDown,
		ledger.BackoffPolicy{Base: 30 * time.Second, Cap: time.Hour, MaxRetries: 5},
		testSyncMetrics(), zap.NewNop(),
	)
	return f
}

func activeConnection(orgID uuid.UUID) *ledger.LedgerConnection {
	return &ledger.LedgerConnection{
		ID:             uuid.New(),
		OrganizationID: orgID,
		RealmID:        "realm-1",
		AccessToken:    "token",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(time.Hour),
		Status:         ledger.ConnectionStatusActive,
		ConflictPolicy: ledger.ConflictPolicyRemoteWins,
	}
}

func claimedOp(t *testing.T, orgID uuid.UUID, entityType ledger.EntityType, entityID string, kind ledger.OperationKind, direction ledger.SyncDirection, payload string) *ledger.SyncOperation {
	t.Helper()
	op, err := ledger.NewSyncOperation(orgID, entityType, entityID, kind, direction, json.RawMessage(payload), ledger.PriorityManual)
	require.NoError(t, err)
	require.NoError(t, op.Start(time.Now()))
	return op
}

func TestExecutor_PushCreate(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Creates remote record and mapping", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "cust-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"name":"Acme"}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeCustomer).
			Return([]ledger.FieldMapping{{LocalField: "name", RemoteField: "DisplayName"}}, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeCustomer, "cust-1").
			Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeCustomer, mock.Anything).
			Return(&ledger.RemoteRecord{RemoteID: "QB-77", Revision: "1"}, nil)
		f.mappings.On("Save", ctx, mock.MatchedBy(func(m *ledger.EntityMapping) bool {
			return m.LocalID == "cust-1" && m.RemoteID == "QB-77"
		}), ledger.MergePolicyNone).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		assert.Equal(t, ledger.OperationStatusSucceeded, op.Status)
		f.client.AssertExpectations(t)
		f.mappings.AssertExpectations(t)
	})

	t.Run("Create with existing mapping becomes remote update", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "cust-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"name":"Acme"}`)

		existing, err := ledger.NewEntityMapping(orgID, ledger.EntityTypeCustomer, "cust-1", "QB-77", "3")
		require.NoError(t, err)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeCustomer).Return([]ledger.FieldMapping{{LocalField: "name", RemoteField: "DisplayName"}}, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeCustomer, "cust-1").Return(existing, nil)
		f.client.On("Update", ctx, mock.Anything, ledger.EntityTypeCustomer, "QB-77", "3", mock.Anything).
			Return(&ledger.RemoteRecord{RemoteID: "QB-77", Revision: "4"}, nil)
		f.mappings.On("Save", ctx, mock.Anything, ledger.MergePolicyNone).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		assert.Equal(t, "4", existing.RemoteRevision)
		f.client.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestExecutor_PushFailures(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Validation rejection buries the operation", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeInvoice, "inv-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"total":10}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeInvoice).Return([]ledger.FieldMapping{{LocalField: "total", RemoteField: "TotalAmt"}}, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeInvoice, "inv-1").Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeInvoice, mock.Anything).
			Return(nil, ledger.ErrLedgerValidation)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)
		f.registry.On("Record", ctx, mock.MatchedBy(func(e *ledger.ErrorEntry) bool {
			return e.Category == ledger.ErrorCategoryValidation
		})).Return(nil)

		err := f.executor.ExecuteClaimed(ctx, op)
		require.Error(t, err)
		assert.Equal(t, ledger.OperationStatusDead, op.Status)
		f.registry.AssertExpectations(t)
	})

	t.Run("Transient failure reschedules and records the error", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeInvoice, "inv-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"total":10}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeInvoice).Return(nil, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeInvoice, "inv-1").Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeInvoice, mock.Anything).
			Return(nil, ledger.ErrLedgerUnavailable)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)
		f.registry.On("Record", ctx, mock.Anything).Return(nil)

		err := f.executor.ExecuteClaimed(ctx, op)
		require.Error(t, err)
		assert.Equal(t, ledger.OperationStatusScheduled, op.Status)
		assert.Equal(t, 1, op.RetryCount)
	})

	t.Run("Rate limit arms the organization cool-down", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeItem, "item-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"sku":"X"}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeItem).Return(nil, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeItem, "item-1").Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeItem, mock.Anything).
			Return(nil, ledger.ErrLedgerRateLimited)
		f.coolDown.On("Arm", ctx, orgID, rateLimitCoolDown).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)
		f.registry.On("Record", ctx, mock.Anything).Return(nil)

		err := f.executor.ExecuteClaimed(ctx, op)
		require.Error(t, err)
		assert.Equal(t, ledger.OperationStatusScheduled, op.Status)
		f.coolDown.AssertExpectations(t)
	})

	t.Run("Retry-After from the throttle response sets the cool-down length", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeItem, "item-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"sku":"X"}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeItem).Return(nil, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeItem, "item-1").Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeItem, mock.Anything).
			Return(nil, &ledger.RateLimitedError{RetryAfter: 5 * time.Minute})
		f.coolDown.On("Arm", ctx, orgID, 5*time.Minute).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)
		f.registry.On("Record", ctx, mock.Anything).Return(nil)

		err := f.executor.ExecuteClaimed(ctx, op)
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorCategoryRateLimited, op.LastErrorCode)
		f.coolDown.AssertExpectations(t)
	})

	t.Run("Expired token is refreshed before the call", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeItem, "item-1", ledger.OperationKindCreate, ledger.SyncDirectionPush, `{"sku":"X"}`)

		conn := activeConnection(orgID)
		conn.TokenExpiresAt = time.Now().Add(-time.Minute)

		f.connections.On("FindByOrganization", ctx, orgID).Return(conn, nil)
		f.tokens.On("Refresh", ctx, conn).Return("new-access", "new-refresh", time.Now().Add(time.Hour), nil)
		f.connections.On("Update", ctx, conn).Return(nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeItem).Return(nil, nil)
		f.mappings.On("FindByLocalID", ctx, orgID, ledger.EntityTypeItem, "item-1").Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Create", ctx, mock.Anything, ledger.EntityTypeItem, mock.Anything).
			Return(&ledger.RemoteRecord{RemoteID: "QB-1", Revision: "1"}, nil)
		f.mappings.On("Save", ctx, mock.Anything, ledger.MergePolicyNone).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		assert.Equal(t, "new-access", conn.AccessToken)
		f.tokens.AssertExpectations(t)
	})
}

func TestExecutor_Pull(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Pull of unmapped record creates mapping and local record", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "QB-77", ledger.OperationKindUpdate, ledger.SyncDirectionPull, `{}`)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.mappings.On("FindByRemoteID", ctx, orgID, ledger.EntityTypeCustomer, "QB-77").
			Return(nil, ledger.ErrMappingNotFound)
		f.client.On("Fetch", ctx, mock.Anything, ledger.EntityTypeCustomer, "QB-77").
			Return(&ledger.RemoteRecord{RemoteID: "QB-77", Revision: "2", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"DisplayName":"Acme"}`)}, nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeCustomer).
			Return([]ledger.FieldMapping{{LocalField: "name", RemoteField: "DisplayName"}}, nil)
		f.mappings.On("Save", ctx, mock.Anything, ledger.MergePolicyNone).Return(nil)
		f.local.On("Upsert", ctx, mock.MatchedBy(func(r *ledger.LocalRecord) bool {
			return r.EntityType == ledger.EntityTypeCustomer && string(r.Payload) == `{"name":"Acme"}`
		})).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		assert.Equal(t, ledger.OperationStatusSucceeded, op.Status)
		f.local.AssertExpectations(t)
	})

	t.Run("Remote wins on two-sided conflict", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "QB-77", ledger.OperationKindUpdate, ledger.SyncDirectionPull, `{}`)

		mapping, err := ledger.NewEntityMapping(orgID, ledger.EntityTypeCustomer, "cust-1", "QB-77", "2")
		require.NoError(t, err)
		mapping.LastSyncedAt = time.Now().Add(-time.Hour)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.mappings.On("FindByRemoteID", ctx, orgID, ledger.EntityTypeCustomer, "QB-77").Return(mapping, nil)
		f.client.On("Fetch", ctx, mock.Anything, ledger.EntityTypeCustomer, "QB-77").
			Return(&ledger.RemoteRecord{RemoteID: "QB-77", Revision: "3", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"DisplayName":"Remote"}`)}, nil)
		f.local.On("Get", ctx, orgID, ledger.EntityTypeCustomer, "cust-1").
			Return(&ledger.LocalRecord{LocalID: "cust-1", Payload: json.RawMessage(`{"name":"Local"}`), UpdatedAt: time.Now()}, nil)
		f.fieldMaps.On("ListByEntityType", ctx, orgID, ledger.EntityTypeCustomer).
			Return([]ledger.FieldMapping{{LocalField: "name", RemoteField: "DisplayName"}}, nil)
		f.local.On("Upsert", ctx, mock.MatchedBy(func(r *ledger.LocalRecord) bool {
			return string(r.Payload) == `{"name":"Remote"}`
		})).Return(nil)
		f.mappings.On("Save", ctx, mock.Anything, ledger.MergePolicyNone).Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		f.local.AssertExpectations(t)
	})

	t.Run("Local wins enqueues a counter-push and keeps local state", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "QB-77", ledger.OperationKindUpdate, ledger.SyncDirectionPull, `{}`)

		conn := activeConnection(orgID)
		conn.ConflictPolicy = ledger.ConflictPolicyLocalWins

		mapping, err := ledger.NewEntityMapping(orgID, ledger.EntityTypeCustomer, "cust-1", "QB-77", "2")
		require.NoError(t, err)
		mapping.LastSyncedAt = time.Now().Add(-time.Hour)

		f.connections.On("FindByOrganization", ctx, orgID).Return(conn, nil)
		f.mappings.On("FindByRemoteID", ctx, orgID, ledger.EntityTypeCustomer, "QB-77").Return(mapping, nil)
		f.client.On("Fetch", ctx, mock.Anything, ledger.EntityTypeCustomer, "QB-77").
			Return(&ledger.RemoteRecord{RemoteID: "QB-77", Revision: "3", UpdatedAt: time.Now(), Payload: json.RawMessage(`{"DisplayName":"Remote"}`)}, nil)
		f.local.On("Get", ctx, orgID, ledger.EntityTypeCustomer, "cust-1").
			Return(&ledger.LocalRecord{LocalID: "cust-1", Payload: json.RawMessage(`{"name":"Local"}`), UpdatedAt: time.Now()}, nil)
		f.operations.On("Enqueue", ctx, mock.MatchedBy(func(pushOp *ledger.SyncOperation) bool {
			return pushOp.Direction == ledger.SyncDirectionPush && pushOp.EntityID == "cust-1"
		})).Return(&ledger.SyncOperation{ID: uuid.New()}, nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		f.local.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		f.operations.AssertExpectations(t)
	})

	t.Run("Pull delete tombstones local record and unlinks mapping", func(t *testing.T) {
		f := newExecutorFixture()
		op := claimedOp(t, orgID, ledger.EntityTypeCustomer, "QB-77", ledger.OperationKindDelete, ledger.SyncDirectionPull, `{}`)

		mapping, err := ledger.NewEntityMapping(orgID, ledger.EntityTypeCustomer, "cust-1", "QB-77", "2")
		require.NoError(t, err)

		f.connections.On("FindByOrganization", ctx, orgID).Return(activeConnection(orgID), nil)
		f.mappings.On("FindByRemoteID", ctx, orgID, ledger.EntityTypeCustomer, "QB-77").Return(mapping, nil)
		f.local.On("MarkDeleted", ctx, orgID, ledger.EntityTypeCustomer, "cust-1", mock.Anything).Return(nil)
		f.mappings.On("Delete", ctx, orgID, ledger.EntityTypeCustomer, "cust-1").Return(nil)
		f.operations.On("Update", ctx, mock.Anything).Return(nil)
		f.batches.On("RecordRun", ctx, mock.Anything).Return(nil)

		require.NoError(t, f.executor.ExecuteClaimed(ctx, op))
		f.local.AssertExpectations(t)
		f.mappings.AssertExpectations(t)
	})
}
