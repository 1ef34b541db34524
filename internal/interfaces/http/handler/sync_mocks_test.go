package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// Mock repositories backing the application services under test
// ---------------------------------------------------------------------------

// MockOperationRepository is a mock implementation of OperationRepository
type MockOperationRepository struct {
	mock.Mock
}

func (m *MockOperationRepository) Enqueue(ctx context.Context, op *ledger.SyncOperation) (*ledger.SyncOperation, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SyncOperation), args.Error(1)
}

func (m *MockOperationRepository) DequeueReady(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, now time.Time, limit int) ([]*ledger.SyncOperation, error) {
	args := m.Called(ctx, orgID, entityType, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.SyncOperation), args.Error(1)
}

func (m *MockOperationRepository) Update(ctx context.Context, op *ledger.SyncOperation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.SyncOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SyncOperation), args.Error(1)
}

func (m *MockOperationRepository) FindByIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string) (*ledger.SyncOperation, error) {
	args := m.Called(ctx, orgID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SyncOperation), args.Error(1)
}

func (m *MockOperationRepository) List(ctx context.Context, filter ledger.OperationFilter) ([]*ledger.SyncOperation, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.SyncOperation), args.Get(1).(int64), args.Error(2)
}

func (m *MockOperationRepository) CountOutstanding(ctx context.Context, orgID uuid.UUID) (map[ledger.EntityType]int64, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[ledger.EntityType]int64), args.Error(1)
}

func (m *MockOperationRepository) ListDead(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncOperation, int64, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.SyncOperation), args.Get(1).(int64), args.Error(2)
}

var _ ledger.OperationRepository = (*MockOperationRepository)(nil)

// MockSyncConfigRepository is a mock implementation of SyncConfigRepository
type MockSyncConfigRepository struct {
	mock.Mock
}

func (m *MockSyncConfigRepository) FindByEntityType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType) (*ledger.EntitySyncConfig, error) {
	args := m.Called(ctx, orgID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.EntitySyncConfig), args.Error(1)
}

func (m *MockSyncConfigRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*ledger.EntitySyncConfig, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.EntitySyncConfig), args.Error(1)
}

func (m *MockSyncConfigRepository) Save(ctx context.Context, cfg *ledger.EntitySyncConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

var _ ledger.SyncConfigRepository = (*MockSyncConfigRepository)(nil)

// MockBatchRepository is a mock implementation of BatchRepository
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, batch *ledger.SyncBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) Update(ctx context.Context, batch *ledger.SyncBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.SyncBatch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SyncBatch), args.Error(1)
}

func (m *MockBatchRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncBatch, int64, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.SyncBatch), args.Get(1).(int64), args.Error(2)
}

func (m *MockBatchRepository) RecordRun(ctx context.Context, run *ledger.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockBatchRepository) ListRuns(ctx context.Context, orgID uuid.UUID, operationID *uuid.UUID, limit, offset int) ([]*ledger.SyncRun, int64, error) {
	args := m.Called(ctx, orgID, operationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.SyncRun), args.Get(1).(int64), args.Error(2)
}

var _ ledger.BatchRepository = (*MockBatchRepository)(nil)

// MockErrorRegistry is a mock implementation of ErrorRegistry
type MockErrorRegistry struct {
	mock.Mock
}

func (m *MockErrorRegistry) Record(ctx context.Context, entry *ledger.ErrorEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockErrorRegistry) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.ErrorEntry), args.Error(1)
}

func (m *MockErrorRegistry) List(ctx context.Context, orgID uuid.UUID, includeResolved bool, limit, offset int) ([]*ledger.ErrorEntry, int64, error) {
	args := m.Called(ctx, orgID, includeResolved, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.ErrorEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockErrorRegistry) Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time) error {
	args := m.Called(ctx, id, resolvedAt)
	return args.Error(0)
}

func (m *MockErrorRegistry) CountByCategory(ctx context.Context, orgID uuid.UUID) (map[ledger.ErrorCategory]int64, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[ledger.ErrorCategory]int64), args.Error(1)
}

var _ ledger.ErrorRegistry = (*MockErrorRegistry)(nil)

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Save(ctx context.Context, event *ledger.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	args := m.Called(ctx, id, processedAt)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) ListUnprocessed(ctx context.Context, orgID uuid.UUID, limit int) ([]*ledger.WebhookEvent, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.WebhookEvent), args.Error(1)
}

var _ ledger.WebhookEventRepository = (*MockWebhookEventRepository)(nil)

// stubDeduplicator never reports a duplicate
type stubDeduplicator struct{}

func (stubDeduplicator) Seen(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) (bool, error) {
	return false, nil
}

// testSyncMetrics builds metrics backed by the global no-op meter provider.
func testSyncMetrics() *telemetry.SyncMetrics {
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter: otel.GetMeterProvider().Meter("test"),
	})
	if err != nil {
		panic(err)
	}
	return sm
}
