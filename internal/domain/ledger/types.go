package ledger

// ---------------------------------------------------------------------------
// EntityType
// ---------------------------------------------------------------------------

// EntityType represents a category of mirrored business record.
type EntityType string

const (
	// EntityTypeAccount represents chart-of-accounts entries
	EntityTypeAccount EntityType = "ACCOUNT"
	// EntityTypeCustomer represents customer profiles
	EntityTypeCustomer EntityType = "CUSTOMER"
	// EntityTypeVendor represents vendor/supplier profiles
	EntityTypeVendor EntityType = "VENDOR"
	// EntityTypeItem represents products and services
	EntityTypeItem EntityType = "ITEM"
	// EntityTypeInvoice represents sales invoices
	EntityTypeInvoice EntityType = "INVOICE"
	// EntityTypeBill represents vendor bills
	EntityTypeBill EntityType = "BILL"
	// EntityTypePayment represents payment receipts
	EntityTypePayment EntityType = "PAYMENT"
	// EntityTypeSalesOrder represents sales orders
	EntityTypeSalesOrder EntityType = "SALES_ORDER"
	// EntityTypePurchaseOrder represents purchase orders
	EntityTypePurchaseOrder EntityType = "PURCHASE_ORDER"
	// EntityTypeInventory represents inventory adjustments
	EntityTypeInventory EntityType = "INVENTORY"
)

// AllEntityTypes returns every syncable entity type.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypeAccount,
		EntityTypeCustomer,
		EntityTypeVendor,
		EntityTypeItem,
		EntityTypeInvoice,
		EntityTypeBill,
		EntityTypePayment,
		EntityTypeSalesOrder,
		EntityTypePurchaseOrder,
		EntityTypeInventory,
	}
}

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeAccount, EntityTypeCustomer, EntityTypeVendor, EntityTypeItem,
		EntityTypeInvoice, EntityTypeBill, EntityTypePayment,
		EntityTypeSalesOrder, EntityTypePurchaseOrder, EntityTypeInventory:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// OperationKind
// ---------------------------------------------------------------------------

// OperationKind represents what a sync operation does to its entity.
type OperationKind string

const (
	// OperationKindCreate creates the counterpart record
	OperationKindCreate OperationKind = "CREATE"
	// OperationKindUpdate updates the counterpart record
	OperationKindUpdate OperationKind = "UPDATE"
	// OperationKindDelete deletes the counterpart record
	OperationKindDelete OperationKind = "DELETE"
)

// IsValid returns true if the operation kind is valid
func (k OperationKind) IsValid() bool {
	switch k {
	case OperationKindCreate, OperationKindUpdate, OperationKindDelete:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationKind
func (k OperationKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// SyncDirection
// ---------------------------------------------------------------------------

// SyncDirection represents the direction of a sync operation.
type SyncDirection string

const (
	// SyncDirectionPush moves a local change to the ledger system
	SyncDirectionPush SyncDirection = "PUSH"
	// SyncDirectionPull moves a remote change into the local store
	SyncDirectionPull SyncDirection = "PULL"
)

// IsValid returns true if the direction is valid
func (d SyncDirection) IsValid() bool {
	switch d {
	case SyncDirectionPush, SyncDirectionPull:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncDirection
func (d SyncDirection) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// OperationStatus
// ---------------------------------------------------------------------------

// OperationStatus represents the lifecycle state of a sync operation.
type OperationStatus string

const (
	// OperationStatusPending indicates the operation was enqueued but not yet scheduled
	OperationStatusPending OperationStatus = "PENDING"
	// OperationStatusScheduled indicates the operation is waiting for its scheduled_at time
	OperationStatusScheduled OperationStatus = "SCHEDULED"
	// OperationStatusInProgress indicates a worker has claimed the operation
	OperationStatusInProgress OperationStatus = "IN_PROGRESS"
	// OperationStatusSucceeded indicates the operation completed successfully
	OperationStatusSucceeded OperationStatus = "SUCCEEDED"
	// OperationStatusFailed indicates the last attempt failed; kept for reporting
	// before the queue requeues or buries the operation
	OperationStatusFailed OperationStatus = "FAILED"
	// OperationStatusDead indicates the retry budget is exhausted; manual intervention required
	OperationStatusDead OperationStatus = "DEAD"
	// OperationStatusCancelled indicates the operation was cancelled before execution
	OperationStatusCancelled OperationStatus = "CANCELLED"
)

// IsValid returns true if the status is valid
func (s OperationStatus) IsValid() bool {
	switch s {
	case OperationStatusPending, OperationStatusScheduled, OperationStatusInProgress,
		OperationStatusSucceeded, OperationStatusFailed, OperationStatusDead,
		OperationStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationStatus
func (s OperationStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s OperationStatus) IsTerminal() bool {
	switch s {
	case OperationStatusSucceeded, OperationStatusDead, OperationStatusCancelled:
		return true
	default:
		return false
	}
}

// IsOutstanding returns true if the operation still counts against
// dependency readiness checks (not yet resolved one way or the other).
func (s OperationStatus) IsOutstanding() bool {
	switch s {
	case OperationStatusPending, OperationStatusScheduled, OperationStatusInProgress, OperationStatusFailed:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// BatchStatus
// ---------------------------------------------------------------------------

// BatchStatus represents the state of a sync batch.
type BatchStatus string

const (
	// BatchStatusRunning indicates the batch is being drained
	BatchStatusRunning BatchStatus = "RUNNING"
	// BatchStatusCompleted indicates all member operations succeeded
	BatchStatusCompleted BatchStatus = "COMPLETED"
	// BatchStatusCompletedWithErrors indicates at least one member operation failed
	BatchStatusCompletedWithErrors BatchStatus = "COMPLETED_WITH_ERRORS"
)

// IsValid returns true if the status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusRunning, BatchStatusCompleted, BatchStatusCompletedWithErrors:
		return true
	default:
		return false
	}
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ErrorCategory
// ---------------------------------------------------------------------------

// ErrorCategory classifies why a sync operation failed.
type ErrorCategory string

const (
	// ErrorCategoryValidation indicates the remote system rejected the payload; not retried
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	// ErrorCategoryTransient indicates a network/timeout/5xx failure; retried with backoff
	ErrorCategoryTransient ErrorCategory = "TRANSIENT"
	// ErrorCategoryRateLimited indicates the remote throttled us; retried after an
	// organization-wide cool-down in addition to per-operation backoff
	ErrorCategoryRateLimited ErrorCategory = "RATE_LIMITED"
	// ErrorCategoryAuthExpired indicates the access token expired mid-flight
	ErrorCategoryAuthExpired ErrorCategory = "AUTH_EXPIRED"
	// ErrorCategoryConflict indicates a mapping bijection violation; not auto-retried
	ErrorCategoryConflict ErrorCategory = "CONFLICT"
)

// IsValid returns true if the category is valid
func (c ErrorCategory) IsValid() bool {
	switch c {
	case ErrorCategoryValidation, ErrorCategoryTransient, ErrorCategoryRateLimited,
		ErrorCategoryAuthExpired, ErrorCategoryConflict:
		return true
	default:
		return false
	}
}

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if operations failing with this category should
// be requeued with backoff rather than buried immediately.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case ErrorCategoryTransient, ErrorCategoryRateLimited, ErrorCategoryAuthExpired:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// DirectionPolicy / ConflictPolicy
// ---------------------------------------------------------------------------

// DirectionPolicy restricts which directions an entity type syncs in.
type DirectionPolicy string

const (
	// DirectionPolicyBidirectional allows both push and pull
	DirectionPolicyBidirectional DirectionPolicy = "BIDIRECTIONAL"
	// DirectionPolicyPushOnly allows only local-to-remote sync
	DirectionPolicyPushOnly DirectionPolicy = "PUSH_ONLY"
	// DirectionPolicyPullOnly allows only remote-to-local sync
	DirectionPolicyPullOnly DirectionPolicy = "PULL_ONLY"
)

// IsValid returns true if the policy is valid
func (p DirectionPolicy) IsValid() bool {
	switch p {
	case DirectionPolicyBidirectional, DirectionPolicyPushOnly, DirectionPolicyPullOnly:
		return true
	default:
		return false
	}
}

// Allows returns true if the policy permits syncing in the given direction.
func (p DirectionPolicy) Allows(d SyncDirection) bool {
	switch p {
	case DirectionPolicyPushOnly:
		return d == SyncDirectionPush
	case DirectionPolicyPullOnly:
		return d == SyncDirectionPull
	default:
		return true
	}
}

// ConflictPolicy decides the winner when both sides changed since the last
// recorded mapping timestamps. The default is remote-wins; the policy is
// explicit per organization, never decided per-field.
type ConflictPolicy string

const (
	// ConflictPolicyRemoteWins keeps the ledger system's version
	ConflictPolicyRemoteWins ConflictPolicy = "REMOTE_WINS"
	// ConflictPolicyLocalWins keeps the portal's version
	ConflictPolicyLocalWins ConflictPolicy = "LOCAL_WINS"
)

// IsValid returns true if the policy is valid
func (p ConflictPolicy) IsValid() bool {
	switch p {
	case ConflictPolicyRemoteWins, ConflictPolicyLocalWins:
		return true
	default:
		return false
	}
}

// Priority bands for enqueued operations; lower value means more urgent.
const (
	// PriorityWebhook is used for operations triggered by inbound webhooks
	PriorityWebhook = 10
	// PriorityManual is used for operator-triggered operations
	PriorityManual = 50
	// PriorityPolling is the default for scheduled polling operations
	PriorityPolling = 100
)
