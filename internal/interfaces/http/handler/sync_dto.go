package handler

import (
	"encoding/json"
	"time"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// EnqueueOperationRequest represents a request to enqueue a sync operation
// @Description Request body for enqueuing a sync operation
type EnqueueOperationRequest struct {
	EntityType string          `json:"entity_type" binding:"required" example:"INVOICE"`
	EntityID   string          `json:"entity_id" binding:"required" example:"inv-1042"`
	Kind       string          `json:"kind" binding:"required,oneof=CREATE UPDATE DELETE" example:"UPDATE"`
	Direction  string          `json:"direction" binding:"required,oneof=PUSH PULL" example:"PUSH"`
	Payload    json.RawMessage `json:"payload"`
	Priority   *int            `json:"priority" binding:"omitempty,min=0,max=1000" example:"50"`
}

// ListOperationsRequest represents query parameters for listing operations
type ListOperationsRequest struct {
	EntityType string `form:"entity_type"`
	Status     string `form:"status"`
	Direction  string `form:"direction"`
	BatchID    string `form:"batch_id" binding:"omitempty,uuid"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// UpdateEntityConfigRequest represents a request to update per-type sync settings
// @Description Request body for updating an entity type's sync configuration
type UpdateEntityConfigRequest struct {
	Enabled             bool   `json:"enabled"`
	DirectionPolicy     string `json:"direction_policy" binding:"required,oneof=BIDIRECTIONAL PUSH_ONLY PULL_ONLY" example:"BIDIRECTIONAL"`
	PollIntervalSeconds int    `json:"poll_interval_seconds" binding:"min=0" example:"300"`
}

// DependencyEdgeRequest represents one edge in a dependency replacement.
// Edges marked required gate the dependent type during coordinator passes;
// optional edges only influence ordering.
type DependencyEdgeRequest struct {
	EntityType string `json:"entity_type" binding:"required" example:"INVOICE"`
	DependsOn  string `json:"depends_on" binding:"required" example:"CUSTOMER"`
	IsRequired *bool  `json:"is_required" example:"true"`
}

// ReplaceDependenciesRequest represents a request to replace the dependency graph
// @Description Request body for replacing an organization's dependency edges
type ReplaceDependenciesRequest struct {
	Edges []DependencyEdgeRequest `json:"edges" binding:"required,dive"`
}

// FieldMappingRequest represents one field mapping in a replacement
type FieldMappingRequest struct {
	LocalField   string `json:"local_field" binding:"required" example:"display_name"`
	RemoteField  string `json:"remote_field" binding:"required" example:"DisplayName"`
	Transform    string `json:"transform" binding:"omitempty,oneof=none uppercase lowercase trim prefix suffix date_format decimal_scale" example:"trim"`
	TransformArg string `json:"transform_arg" example:""`
	Required     bool   `json:"required"`
}

// ReplaceFieldMappingsRequest represents a request to replace field mappings for an entity type
// @Description Request body for replacing an entity type's field mappings
type ReplaceFieldMappingsRequest struct {
	Mappings []FieldMappingRequest `json:"mappings" binding:"required,dive"`
}

// UpdateConflictPolicyRequest represents a request to change the conflict policy
// @Description Request body for updating an organization's conflict policy
type UpdateConflictPolicyRequest struct {
	Policy string `json:"policy" binding:"required,oneof=REMOTE_WINS LOCAL_WINS" example:"REMOTE_WINS"`
}

// ReplayWebhooksRequest represents a request to re-enqueue unprocessed webhook events
type ReplayWebhooksRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000" example:"100"`
}

// SyncOperationResponse represents a sync operation in API responses
type SyncOperationResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EntityType     string     `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	Kind           string     `json:"kind"`
	Direction      string     `json:"direction"`
	Status         string     `json:"status"`
	Priority       int        `json:"priority"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	RetryCount     int        `json:"retry_count"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorCode  string     `json:"last_error_code,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toSyncOperationResponse(op *ledger.SyncOperation) SyncOperationResponse {
	return SyncOperationResponse{
		ID:             op.ID,
		OrganizationID: op.OrganizationID,
		EntityType:     op.EntityType.String(),
		EntityID:       op.EntityID,
		Kind:           op.Kind.String(),
		Direction:      op.Direction.String(),
		Status:         op.Status.String(),
		Priority:       op.Priority,
		BatchID:        op.BatchID,
		RetryCount:     op.RetryCount,
		ScheduledAt:    op.ScheduledAt,
		StartedAt:      op.StartedAt,
		CompletedAt:    op.CompletedAt,
		LastError:      op.LastError,
		LastErrorCode:  op.LastErrorCode.String(),
		CreatedAt:      op.CreatedAt,
		UpdatedAt:      op.UpdatedAt,
	}
}

func toSyncOperationResponses(ops []*ledger.SyncOperation) []SyncOperationResponse {
	out := make([]SyncOperationResponse, len(ops))
	for i, op := range ops {
		out[i] = toSyncOperationResponse(op)
	}
	return out
}

// EnqueueOperationResponse represents the result of an enqueue call
type EnqueueOperationResponse struct {
	Operation    SyncOperationResponse `json:"operation"`
	Deduplicated bool                  `json:"deduplicated"`
}

// SyncBatchResponse represents a sync batch in API responses
type SyncBatchResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EntityType     string     `json:"entity_type"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	SucceededCount int        `json:"succeeded_count"`
	FailedCount    int        `json:"failed_count"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toSyncBatchResponse(b *ledger.SyncBatch) SyncBatchResponse {
	return SyncBatchResponse{
		ID:             b.ID,
		OrganizationID: b.OrganizationID,
		EntityType:     b.EntityType.String(),
		Status:         b.Status.String(),
		TotalCount:     b.TotalCount,
		SucceededCount: b.SucceededCount,
		FailedCount:    b.FailedCount,
		StartedAt:      b.StartedAt,
		CompletedAt:    b.CompletedAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// SyncRunResponse represents a single execution attempt in API responses
type SyncRunResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	OperationID    uuid.UUID  `json:"operation_id"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	EntityType     string     `json:"entity_type"`
	Direction      string     `json:"direction"`
	Succeeded      bool       `json:"succeeded"`
	ErrorCategory  string     `json:"error_category,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	DurationMillis int64      `json:"duration_ms"`
	RanAt          time.Time  `json:"ran_at"`
}

func toSyncRunResponse(r *ledger.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		OperationID:    r.OperationID,
		BatchID:        r.BatchID,
		EntityType:     r.EntityType.String(),
		Direction:      r.Direction.String(),
		Succeeded:      r.Succeeded,
		ErrorCategory:  r.ErrorCategory.String(),
		ErrorMessage:   r.ErrorMessage,
		DurationMillis: r.Duration.Milliseconds(),
		RanAt:          r.RanAt,
	}
}

// ErrorEntryResponse represents an error registry entry in API responses
type ErrorEntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	EntityType     string     `json:"entity_type"`
	Category       string     `json:"category"`
	Fingerprint    string     `json:"fingerprint"`
	Message        string     `json:"message"`
	Occurrences    int        `json:"occurrences"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func toErrorEntryResponse(e *ledger.ErrorEntry) ErrorEntryResponse {
	return ErrorEntryResponse{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		EntityType:     e.EntityType.String(),
		Category:       e.Category.String(),
		Fingerprint:    e.Fingerprint,
		Message:        e.Message,
		Occurrences:    e.Occurrences,
		FirstSeenAt:    e.FirstSeenAt,
		LastSeenAt:     e.LastSeenAt,
		Resolved:       e.Resolved,
		ResolvedAt:     e.ResolvedAt,
	}
}

// EntitySyncConfigResponse represents per-type sync settings in API responses
type EntitySyncConfigResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OrganizationID      uuid.UUID  `json:"organization_id"`
	EntityType          string     `json:"entity_type"`
	Enabled             bool       `json:"enabled"`
	DirectionPolicy     string     `json:"direction_policy"`
	PollIntervalSeconds int        `json:"poll_interval_seconds"`
	LastPolledAt        *time.Time `json:"last_polled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toEntitySyncConfigResponse(cfg *ledger.EntitySyncConfig) EntitySyncConfigResponse {
	return EntitySyncConfigResponse{
		ID:                  cfg.ID,
		OrganizationID:      cfg.OrganizationID,
		EntityType:          cfg.EntityType.String(),
		Enabled:             cfg.Enabled,
		DirectionPolicy:     string(cfg.DirectionPolicy),
		PollIntervalSeconds: int(cfg.PollInterval / time.Second),
		LastPolledAt:        cfg.LastPolledAt,
		CreatedAt:           cfg.CreatedAt,
		UpdatedAt:           cfg.UpdatedAt,
	}
}

// FieldMappingResponse represents a field mapping in API responses
type FieldMappingResponse struct {
	ID           uuid.UUID `json:"id"`
	EntityType   string    `json:"entity_type"`
	LocalField   string    `json:"local_field"`
	RemoteField  string    `json:"remote_field"`
	Transform    string    `json:"transform"`
	TransformArg string    `json:"transform_arg,omitempty"`
	Required     bool      `json:"required"`
}

func toFieldMappingResponse(m ledger.FieldMapping) FieldMappingResponse {
	return FieldMappingResponse{
		ID:           m.ID,
		EntityType:   m.EntityType.String(),
		LocalField:   m.LocalField,
		RemoteField:  m.RemoteField,
		Transform:    string(m.Transform),
		TransformArg: m.TransformArg,
		Required:     m.Required,
	}
}

// DependencyEdgeResponse represents one dependency edge in API responses
type DependencyEdgeResponse struct {
	EntityType string `json:"entity_type"`
	DependsOn  string `json:"depends_on"`
	IsRequired bool   `json:"is_required"`
}

func toDependencyEdgeResponses(edges []ledger.EntityDependency) []DependencyEdgeResponse {
	out := make([]DependencyEdgeResponse, len(edges))
	for i, e := range edges {
		out[i] = DependencyEdgeResponse{
			EntityType: e.EntityType.String(),
			DependsOn:  e.DependsOn.String(),
			IsRequired: e.IsRequired,
		}
	}
	return out
}

// ConnectionResponse represents a ledger connection in API responses.
// Tokens never leave the server.
type ConnectionResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	RealmID        string     `json:"realm_id"`
	Status         string     `json:"status"`
	ConflictPolicy string     `json:"conflict_policy"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	ConnectedAt    time.Time  `json:"connected_at"`
	LastRefreshAt  *time.Time `json:"last_refresh_at,omitempty"`
}

func toConnectionResponse(conn *ledger.LedgerConnection) ConnectionResponse {
	return ConnectionResponse{
		ID:             conn.ID,
		OrganizationID: conn.OrganizationID,
		RealmID:        conn.RealmID,
		Status:         string(conn.Status),
		ConflictPolicy: string(conn.ConflictPolicy),
		TokenExpiresAt: conn.TokenExpiresAt,
		ConnectedAt:    conn.ConnectedAt,
		LastRefreshAt:  conn.LastRefreshAt,
	}
}

// QueueDepthResponse represents outstanding operation counts per entity type
type QueueDepthResponse struct {
	Depth map[string]int64 `json:"depth"`
}

// ErrorSummaryResponse represents unresolved error counts per category
type ErrorSummaryResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// ReplayWebhooksResponse represents the result of a webhook replay
type ReplayWebhooksResponse struct {
	Enqueued int `json:"enqueued"`
}
