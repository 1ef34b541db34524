package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// Mock repositories and ports
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

// MockMappingStore is a mock implementation of MappingStore
type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) Save(ctx context.Context, mapping *ledger.EntityMapping, policy ledger.MergePolicy) error {
	args := m.Called(ctx, mapping, policy)
	return args.Error(0)
}

func (m *MockMappingStore) FindByLocalID(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) (*ledger.EntityMapping, error) {
	args := m.Called(ctx, orgID, entityType, localID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.EntityMapping), args.Error(1)
}

func (m *MockMappingStore) FindByRemoteID(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, remoteID string) (*ledger.EntityMapping, error) {
	args := m.Called(ctx, orgID, entityType, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.EntityMapping), args.Error(1)
}

func (m *MockMappingStore) ListByType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, limit, offset int) ([]*ledger.EntityMapping, int64, error) {
	args := m.Called(ctx, orgID, entityType, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.EntityMapping), args.Get(1).(int64), args.Error(2)
}

func (m *MockMappingStore) Delete(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) error {
	args := m.Called(ctx, orgID, entityType, localID)
	return args.Error(0)
}

var _ ledger.MappingStore = (*MockMappingStore)(nil)

// MockConnectionRepository is a mock implementation of ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Save(ctx context.Context, conn *ledger.LedgerConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) (*ledger.LedgerConnection, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LedgerConnection), args.Error(1)
}

func (m *MockConnectionRepository) Update(ctx context.Context, conn *ledger.LedgerConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

var _ ledger.ConnectionRepository = (*MockConnectionRepository)(nil)

// MockFieldMappingRepository is a mock implementation of FieldMappingRepository
type MockFieldMappingRepository struct {
	mock.Mock
}

func (m *MockFieldMappingRepository) ListByEntityType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType) ([]ledger.FieldMapping, error) {
	args := m.Called(ctx, orgID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.FieldMapping), args.Error(1)
}

func (m *MockFieldMappingRepository) Replace(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, mappings []ledger.FieldMapping) error {
	args := m.Called(ctx, orgID, entityType, mappings)
	return args.Error(0)
}

var _ ledger.FieldMappingRepository = (*MockFieldMappingRepository)(nil)

// MockLedgerClient is a mock implementation of LedgerClient
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) Create(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, payload json.RawMessage) (*ledger.RemoteRecord, error) {
	args := m.Called(ctx, conn, entityType, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RemoteRecord), args.Error(1)
}

func (m *MockLedgerClient) Update(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID, revision string, payload json.RawMessage) (*ledger.RemoteRecord, error) {
	args := m.Called(ctx, conn, entityType, remoteID, revision, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RemoteRecord), args.Error(1)
}

func (m *MockLedgerClient) Delete(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID, revision string) error {
	args := m.Called(ctx, conn, entityType, remoteID, revision)
	return args.Error(0)
}

func (m *MockLedgerClient) Fetch(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID string) (*ledger.RemoteRecord, error) {
	args := m.Called(ctx, conn, entityType, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RemoteRecord), args.Error(1)
}

func (m *MockLedgerClient) ChangedSince(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, since time.Time) ([]*ledger.RemoteRecord, error) {
	args := m.Called(ctx, conn, entityType, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.RemoteRecord), args.Error(1)
}

var _ ledger.LedgerClient = (*MockLedgerClient)(nil)

// MockTokenSource is a mock implementation of TokenSource
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Refresh(ctx context.Context, conn *ledger.LedgerConnection) (string, string, time.Time, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.String(1), args.Get(2).(time.Time), args.Error(3)
}

var _ ledger.TokenSource = (*MockTokenSource)(nil)

// MockLocalStore is a mock implementation of LocalStore
type MockLocalStore struct {
	mock.Mock
}

func (m *MockLocalStore) Get(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) (*ledger.LocalRecord, error) {
	args := m.Called(ctx, orgID, entityType, localID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.LocalRecord), args.Error(1)
}

func (m *MockLocalStore) Upsert(ctx context.Context, record *ledger.LocalRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLocalStore) MarkDeleted(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string, deletedAt time.Time) error {
	args := m.Called(ctx, orgID, entityType, localID, deletedAt)
	return args.Error(0)
}

var _ ledger.LocalStore = (*MockLocalStore)(nil)

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

// MockCoolDown is a mock implementation of CoolDown
type MockCoolDown struct {
	mock.Mock
}

func (m *MockCoolDown) Arm(ctx context.Context, orgID uuid.UUID, d time.Duration) error {
	args := m.Called(ctx, orgID, d)
	return args.Error(0)
}

func (m *MockCoolDown) Active(ctx context.Context, orgID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID)
	return args.Bool(0), args.Error(1)
}

var _ ledger.CoolDown = (*MockCoolDown)(nil)

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

// MockDependencyRepository is a mock implementation of DependencyRepository
type MockDependencyRepository struct {
	mock.Mock
}

func (m *MockDependencyRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]ledger.EntityDependency, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.EntityDependency), args.Error(1)
}

func (m *MockDependencyRepository) Replace(ctx context.Context, orgID uuid.UUID, deps []ledger.EntityDependency) error {
	args := m.Called(ctx, orgID, deps)
	return args.Error(0)
}

var _ ledger.DependencyRepository = (*MockDependencyRepository)(nil)

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

// MockWebhookDeduplicator is a mock implementation of WebhookDeduplicator
type MockWebhookDeduplicator struct {
	mock.Mock
}

func (m *MockWebhookDeduplicator) Seen(ctx context.Context, orgID uuid.UUID, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, orgID, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

var _ ledger.WebhookDeduplicator = (*MockWebhookDeduplicator)(nil)

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
