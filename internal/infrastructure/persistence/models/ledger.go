package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/batchly/backend/internal/domain/ledger"
)

// SyncOperationModel is the persistence model for the SyncOperation domain entity.
type SyncOperationModel struct {
	ID             uuid.UUID              `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID              `gorm:"type:uuid;not null;index:idx_sync_op_org_status,priority:1;index:idx_sync_op_idem,priority:1"`
	EntityType     ledger.EntityType      `gorm:"type:varchar(30);not null;index:idx_sync_op_entity,priority:1"`
	EntityID       string                 `gorm:"type:varchar(100);not null;index:idx_sync_op_entity,priority:2"`
	Kind           ledger.OperationKind   `gorm:"type:varchar(10);not null"`
	Direction      ledger.SyncDirection   `gorm:"type:varchar(10);not null"`
	Status         ledger.OperationStatus `gorm:"type:varchar(15);not null;index:idx_sync_op_org_status,priority:2"`
	Priority       int                    `gorm:"not null;default:100"`
	Payload        string                 `gorm:"type:jsonb"`
	IdempotencyKey string                 `gorm:"type:varchar(64);not null;index:idx_sync_op_idem,priority:2"`
	BatchID        *uuid.UUID             `gorm:"type:uuid;index"`
	RetryCount     int                    `gorm:"not null;default:0"`
	ScheduledAt    time.Time              `gorm:"not null;index"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastError      string               `gorm:"type:text"`
	LastErrorCode  ledger.ErrorCategory `gorm:"type:varchar(15)"`
	CreatedAt      time.Time            `gorm:"not null"`
	UpdatedAt      time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncOperationModel) TableName() string {
	return "sync_operations"
}

// ToDomain converts the persistence model to a domain SyncOperation entity.
func (m *SyncOperationModel) ToDomain() *ledger.SyncOperation {
	op := &ledger.SyncOperation{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		Kind:           m.Kind,
		Direction:      m.Direction,
		Status:         m.Status,
		Priority:       m.Priority,
		IdempotencyKey: m.IdempotencyKey,
		BatchID:        m.BatchID,
		RetryCount:     m.RetryCount,
		ScheduledAt:    m.ScheduledAt,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		LastError:      m.LastError,
		LastErrorCode:  m.LastErrorCode,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Payload != "" {
		op.Payload = json.RawMessage(m.Payload)
	}
	return op
}

// FromDomain populates the persistence model from a domain SyncOperation entity.
func (m *SyncOperationModel) FromDomain(op *ledger.SyncOperation) {
	m.ID = op.ID
	m.OrganizationID = op.OrganizationID
	m.EntityType = op.EntityType
	m.EntityID = op.EntityID
	m.Kind = op.Kind
	m.Direction = op.Direction
	m.Status = op.Status
	m.Priority = op.Priority
	m.IdempotencyKey = op.IdempotencyKey
	m.BatchID = op.BatchID
	m.RetryCount = op.RetryCount
	m.ScheduledAt = op.ScheduledAt
	m.StartedAt = op.StartedAt
	m.CompletedAt = op.CompletedAt
	m.LastError = op.LastError
	m.LastErrorCode = op.LastErrorCode
	m.CreatedAt = op.CreatedAt
	m.UpdatedAt = op.UpdatedAt
	if len(op.Payload) > 0 {
		m.Payload = string(op.Payload)
	} else {
		m.Payload = "{}"
	}
}

// EntityMappingModel is the persistence model for the EntityMapping domain entity.
// The two unique indexes enforce the local/remote bijection per organization
// and entity type.
type EntityMappingModel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrganizationID  uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uq_mapping_local,priority:1;uniqueIndex:uq_mapping_remote,priority:1"`
	EntityType      ledger.EntityType `gorm:"type:varchar(30);not null;uniqueIndex:uq_mapping_local,priority:2;uniqueIndex:uq_mapping_remote,priority:2"`
	LocalID         string            `gorm:"type:varchar(100);not null;uniqueIndex:uq_mapping_local,priority:3"`
	RemoteID        string            `gorm:"type:varchar(100);not null;uniqueIndex:uq_mapping_remote,priority:3"`
	RemoteRevision  string            `gorm:"type:varchar(50)"`
	LocalUpdatedAt  time.Time         `gorm:"not null"`
	RemoteUpdatedAt time.Time         `gorm:"not null"`
	LastSyncedAt    time.Time         `gorm:"not null"`
	CreatedAt       time.Time         `gorm:"not null"`
	UpdatedAt       time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityMappingModel) TableName() string {
	return "entity_mappings"
}

// ToDomain converts the persistence model to a domain EntityMapping entity.
func (m *EntityMappingModel) ToDomain() *ledger.EntityMapping {
	return &ledger.EntityMapping{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		EntityType:      m.EntityType,
		LocalID:         m.LocalID,
		RemoteID:        m.RemoteID,
		RemoteRevision:  m.RemoteRevision,
		LocalUpdatedAt:  m.LocalUpdatedAt,
		RemoteUpdatedAt: m.RemoteUpdatedAt,
		LastSyncedAt:    m.LastSyncedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntityMapping entity.
func (m *EntityMappingModel) FromDomain(em *ledger.EntityMapping) {
	m.ID = em.ID
	m.OrganizationID = em.OrganizationID
	m.EntityType = em.EntityType
	m.LocalID = em.LocalID
	m.RemoteID = em.RemoteID
	m.RemoteRevision = em.RemoteRevision
	m.LocalUpdatedAt = em.LocalUpdatedAt
	m.RemoteUpdatedAt = em.RemoteUpdatedAt
	m.LastSyncedAt = em.LastSyncedAt
	m.CreatedAt = em.CreatedAt
	m.UpdatedAt = em.UpdatedAt
}

// EntityDependencyModel is the persistence model for dependency edges.
type EntityDependencyModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uq_dependency_edge,priority:1"`
	EntityType     ledger.EntityType `gorm:"type:varchar(30);not null;uniqueIndex:uq_dependency_edge,priority:2"`
	DependsOn      ledger.EntityType `gorm:"type:varchar(30);not null;uniqueIndex:uq_dependency_edge,priority:3"`
	IsRequired     bool              `gorm:"not null;default:true"`
	CreatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityDependencyModel) TableName() string {
	return "entity_dependencies"
}

// ToDomain converts the persistence model to a domain EntityDependency.
func (m *EntityDependencyModel) ToDomain() ledger.EntityDependency {
	return ledger.EntityDependency{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		DependsOn:      m.DependsOn,
		IsRequired:     m.IsRequired,
	}
}

// SyncBatchModel is the persistence model for the SyncBatch domain entity.
type SyncBatchModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID          `gorm:"type:uuid;not null;index"`
	EntityType     ledger.EntityType  `gorm:"type:varchar(30);not null"`
	Status         ledger.BatchStatus `gorm:"type:varchar(25);not null"`
	TotalCount     int                `gorm:"not null;default:0"`
	SucceededCount int                `gorm:"not null;default:0"`
	FailedCount    int                `gorm:"not null;default:0"`
	StartedAt      time.Time          `gorm:"not null"`
	CompletedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncBatchModel) TableName() string {
	return "sync_batches"
}

// ToDomain converts the persistence model to a domain SyncBatch entity.
func (m *SyncBatchModel) ToDomain() *ledger.SyncBatch {
	return &ledger.SyncBatch{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		Status:         m.Status,
		TotalCount:     m.TotalCount,
		SucceededCount: m.SucceededCount,
		FailedCount:    m.FailedCount,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncBatch entity.
func (m *SyncBatchModel) FromDomain(b *ledger.SyncBatch) {
	m.ID = b.ID
	m.OrganizationID = b.OrganizationID
	m.EntityType = b.EntityType
	m.Status = b.Status
	m.TotalCount = b.TotalCount
	m.SucceededCount = b.SucceededCount
	m.FailedCount = b.FailedCount
	m.StartedAt = b.StartedAt
	m.CompletedAt = b.CompletedAt
	m.CreatedAt = b.CreatedAt
	m.UpdatedAt = b.UpdatedAt
}

// SyncRunModel is the persistence model for the sync history.
type SyncRunModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index:idx_sync_run_org,priority:1"`
	OperationID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	BatchID        *uuid.UUID           `gorm:"type:uuid;index"`
	EntityType     ledger.EntityType    `gorm:"type:varchar(30);not null"`
	Direction      ledger.SyncDirection `gorm:"type:varchar(10);not null"`
	Succeeded      bool                 `gorm:"not null"`
	ErrorCategory  ledger.ErrorCategory `gorm:"type:varchar(15)"`
	ErrorMessage   string               `gorm:"type:text"`
	DurationMs     int64                `gorm:"not null;default:0"`
	RanAt          time.Time            `gorm:"not null;index:idx_sync_run_org,priority:2"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun.
func (m *SyncRunModel) ToDomain() *ledger.SyncRun {
	return &ledger.SyncRun{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		OperationID:    m.OperationID,
		BatchID:        m.BatchID,
		EntityType:     m.EntityType,
		Direction:      m.Direction,
		Succeeded:      m.Succeeded,
		ErrorCategory:  m.ErrorCategory,
		ErrorMessage:   m.ErrorMessage,
		Duration:       time.Duration(m.DurationMs) * time.Millisecond,
		RanAt:          m.RanAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRun.
func (m *SyncRunModel) FromDomain(r *ledger.SyncRun) {
	m.ID = r.ID
	m.OrganizationID = r.OrganizationID
	m.OperationID = r.OperationID
	m.BatchID = r.BatchID
	m.EntityType = r.EntityType
	m.Direction = r.Direction
	m.Succeeded = r.Succeeded
	m.ErrorCategory = r.ErrorCategory
	m.ErrorMessage = r.ErrorMessage
	m.DurationMs = r.Duration.Milliseconds()
	m.RanAt = r.RanAt
}

// ErrorEntryModel is the persistence model for the error registry.
type ErrorEntryModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uq_error_fingerprint,priority:1"`
	EntityType     ledger.EntityType    `gorm:"type:varchar(30);not null;uniqueIndex:uq_error_fingerprint,priority:2"`
	Category       ledger.ErrorCategory `gorm:"type:varchar(15);not null;uniqueIndex:uq_error_fingerprint,priority:3"`
	Fingerprint    string               `gorm:"type:varchar(255);not null;uniqueIndex:uq_error_fingerprint,priority:4"`
	Message        string               `gorm:"type:text"`
	Occurrences    int                  `gorm:"not null;default:1"`
	FirstSeenAt    time.Time            `gorm:"not null"`
	LastSeenAt     time.Time            `gorm:"not null;index"`
	Resolved       bool                 `gorm:"not null;default:false;index"`
	ResolvedAt     *time.Time
}

// TableName returns the table name for GORM
func (ErrorEntryModel) TableName() string {
	return "sync_error_registry"
}

// ToDomain converts the persistence model to a domain ErrorEntry.
func (m *ErrorEntryModel) ToDomain() *ledger.ErrorEntry {
	return &ledger.ErrorEntry{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		Category:       m.Category,
		Fingerprint:    m.Fingerprint,
		Message:        m.Message,
		Occurrences:    m.Occurrences,
		FirstSeenAt:    m.FirstSeenAt,
		LastSeenAt:     m.LastSeenAt,
		Resolved:       m.Resolved,
		ResolvedAt:     m.ResolvedAt,
	}
}

// FromDomain populates the persistence model from a domain ErrorEntry.
func (m *ErrorEntryModel) FromDomain(e *ledger.ErrorEntry) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.EntityType = e.EntityType
	m.Category = e.Category
	m.Fingerprint = e.Fingerprint
	m.Message = e.Message
	m.Occurrences = e.Occurrences
	m.FirstSeenAt = e.FirstSeenAt
	m.LastSeenAt = e.LastSeenAt
	m.Resolved = e.Resolved
	m.ResolvedAt = e.ResolvedAt
}

// WebhookEventModel is the persistence model for the webhook log.
type WebhookEventModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uq_webhook_event,priority:1"`
	EventID        string               `gorm:"type:varchar(100);not null;uniqueIndex:uq_webhook_event,priority:2"`
	EntityType     ledger.EntityType    `gorm:"type:varchar(30);not null"`
	RemoteID       string               `gorm:"type:varchar(100);not null"`
	ChangeKind     ledger.OperationKind `gorm:"type:varchar(10);not null"`
	OccurredAt     time.Time            `gorm:"not null"`
	ReceivedAt     time.Time            `gorm:"not null"`
	Payload        string               `gorm:"type:jsonb"`
	Processed      bool                 `gorm:"not null;default:false;index"`
	ProcessedAt    *time.Time
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent.
func (m *WebhookEventModel) ToDomain() *ledger.WebhookEvent {
	event := &ledger.WebhookEvent{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EventID:        m.EventID,
		EntityType:     m.EntityType,
		RemoteID:       m.RemoteID,
		ChangeKind:     m.ChangeKind,
		OccurredAt:     m.OccurredAt,
		ReceivedAt:     m.ReceivedAt,
		Processed:      m.Processed,
		ProcessedAt:    m.ProcessedAt,
	}
	if m.Payload != "" {
		event.Payload = json.RawMessage(m.Payload)
	}
	return event
}

// FromDomain populates the persistence model from a domain WebhookEvent.
func (m *WebhookEventModel) FromDomain(e *ledger.WebhookEvent) {
	m.ID = e.ID
	m.OrganizationID = e.OrganizationID
	m.EventID = e.EventID
	m.EntityType = e.EntityType
	m.RemoteID = e.RemoteID
	m.ChangeKind = e.ChangeKind
	m.OccurredAt = e.OccurredAt
	m.ReceivedAt = e.ReceivedAt
	m.Processed = e.Processed
	m.ProcessedAt = e.ProcessedAt
	if len(e.Payload) > 0 {
		m.Payload = string(e.Payload)
	} else {
		m.Payload = "{}"
	}
}

// LedgerConnectionModel is the persistence model for ledger connections.
type LedgerConnectionModel struct {
	ID             uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	RealmID        string                  `gorm:"type:varchar(50);not null"`
	AccessToken    string                  `gorm:"type:text;not null"`
	RefreshToken   string                  `gorm:"type:text;not null"`
	TokenExpiresAt time.Time               `gorm:"not null"`
	Status         ledger.ConnectionStatus `gorm:"type:varchar(10);not null"`
	ConflictPolicy ledger.ConflictPolicy   `gorm:"type:varchar(15);not null;default:'REMOTE_WINS'"`
	ConnectedAt    time.Time               `gorm:"not null"`
	LastRefreshAt  *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerConnectionModel) TableName() string {
	return "ledger_connections"
}

// ToDomain converts the persistence model to a domain LedgerConnection.
func (m *LedgerConnectionModel) ToDomain() *ledger.LedgerConnection {
	return &ledger.LedgerConnection{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		RealmID:        m.RealmID,
		AccessToken:    m.AccessToken,
		RefreshToken:   m.RefreshToken,
		TokenExpiresAt: m.TokenExpiresAt,
		Status:         m.Status,
		ConflictPolicy: m.ConflictPolicy,
		ConnectedAt:    m.ConnectedAt,
		LastRefreshAt:  m.LastRefreshAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LedgerConnection.
func (m *LedgerConnectionModel) FromDomain(c *ledger.LedgerConnection) {
	m.ID = c.ID
	m.OrganizationID = c.OrganizationID
	m.RealmID = c.RealmID
	m.AccessToken = c.AccessToken
	m.RefreshToken = c.RefreshToken
	m.TokenExpiresAt = c.TokenExpiresAt
	m.Status = c.Status
	m.ConflictPolicy = c.ConflictPolicy
	m.ConnectedAt = c.ConnectedAt
	m.LastRefreshAt = c.LastRefreshAt
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// EntitySyncConfigModel is the persistence model for per-entity sync settings.
type EntitySyncConfigModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	OrganizationID   uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:uq_sync_config,priority:1"`
	EntityType       ledger.EntityType      `gorm:"type:varchar(30);not null;uniqueIndex:uq_sync_config,priority:2"`
	Enabled          bool                   `gorm:"not null;default:true"`
	DirectionPolicy  ledger.DirectionPolicy `gorm:"type:varchar(15);not null;default:'BIDIRECTIONAL'"`
	PollIntervalSecs int64                  `gorm:"not null;default:900"`
	LastPolledAt     *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntitySyncConfigModel) TableName() string {
	return "entity_sync_configs"
}

// ToDomain converts the persistence model to a domain EntitySyncConfig.
func (m *EntitySyncConfigModel) ToDomain() *ledger.EntitySyncConfig {
	return &ledger.EntitySyncConfig{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		EntityType:      m.EntityType,
		Enabled:         m.Enabled,
		DirectionPolicy: m.DirectionPolicy,
		PollInterval:    time.Duration(m.PollIntervalSecs) * time.Second,
		LastPolledAt:    m.LastPolledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntitySyncConfig.
func (m *EntitySyncConfigModel) FromDomain(c *ledger.EntitySyncConfig) {
	m.ID = c.ID
	m.OrganizationID = c.OrganizationID
	m.EntityType = c.EntityType
	m.Enabled = c.Enabled
	m.DirectionPolicy = c.DirectionPolicy
	m.PollIntervalSecs = int64(c.PollInterval.Seconds())
	m.LastPolledAt = c.LastPolledAt
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// FieldMappingModel is the persistence model for field mappings.
type FieldMappingModel struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index:idx_field_mapping,priority:1"`
	EntityType     ledger.EntityType    `gorm:"type:varchar(30);not null;index:idx_field_mapping,priority:2"`
	LocalField     string               `gorm:"type:varchar(100);not null"`
	RemoteField    string               `gorm:"type:varchar(100);not null"`
	Transform      ledger.TransformType `gorm:"type:varchar(20);not null;default:'none'"`
	TransformArg   string               `gorm:"type:varchar(100)"`
	Required       bool                 `gorm:"not null;default:false"`
	CreatedAt      time.Time            `gorm:"not null"`
	UpdatedAt      time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FieldMappingModel) TableName() string {
	return "field_mappings"
}

// ToDomain converts the persistence model to a domain FieldMapping.
func (m *FieldMappingModel) ToDomain() ledger.FieldMapping {
	return ledger.FieldMapping{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		LocalField:     m.LocalField,
		RemoteField:    m.RemoteField,
		Transform:      m.Transform,
		TransformArg:   m.TransformArg,
		Required:       m.Required,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain FieldMapping.
func (m *FieldMappingModel) FromDomain(f *ledger.FieldMapping) {
	m.ID = f.ID
	m.OrganizationID = f.OrganizationID
	m.EntityType = f.EntityType
	m.LocalField = f.LocalField
	m.RemoteField = f.RemoteField
	m.Transform = f.Transform
	m.TransformArg = f.TransformArg
	m.Required = f.Required
	m.CreatedAt = f.CreatedAt
	m.UpdatedAt = f.UpdatedAt
}

// LocalRecordModel is the persistence model for the portal-side copies of
// mirrored entities.
type LocalRecordModel struct {
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null;primaryKey;priority:1"`
	EntityType     ledger.EntityType `gorm:"type:varchar(30);not null;primaryKey;priority:2"`
	LocalID        string            `gorm:"type:varchar(100);not null;primaryKey;priority:3"`
	Payload        string            `gorm:"type:jsonb"`
	Deleted        bool              `gorm:"not null;default:false"`
	UpdatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocalRecordModel) TableName() string {
	return "local_records"
}

// ToDomain converts the persistence model to a domain LocalRecord.
func (m *LocalRecordModel) ToDomain() *ledger.LocalRecord {
	record := &ledger.LocalRecord{
		OrganizationID: m.OrganizationID,
		EntityType:     m.EntityType,
		LocalID:        m.LocalID,
		Deleted:        m.Deleted,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Payload != "" {
		record.Payload = json.RawMessage(m.Payload)
	}
	return record
}

// FromDomain populates the persistence model from a domain LocalRecord.
func (m *LocalRecordModel) FromDomain(r *ledger.LocalRecord) {
	m.OrganizationID = r.OrganizationID
	m.EntityType = r.EntityType
	m.LocalID = r.LocalID
	m.Deleted = r.Deleted
	m.UpdatedAt = r.UpdatedAt
	if len(r.Payload) > 0 {
		m.Payload = string(r.Payload)
	} else {
		m.Payload = "{}"
	}
}
