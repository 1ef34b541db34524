package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Validation errors
	ErrInvalidEntityType    = errors.New("ledger: invalid entity type")
	ErrInvalidOperationKind = errors.New("ledger: invalid operation kind")
	ErrInvalidDirection     = errors.New("ledger: invalid sync direction")
	ErrEmptyEntityID        = errors.New("ledger: entity id cannot be empty")

	// Queue errors
	ErrDuplicateOperation  = errors.New("ledger: operation with this idempotency key already queued")
	ErrNotYetDue           = errors.New("ledger: operation is not due yet")
	ErrOperationNotFound   = errors.New("ledger: sync operation not found")
	ErrInvalidTransition   = errors.New("ledger: operation status transition not allowed")
	ErrCancelNotAllowed    = errors.New("ledger: only pending or scheduled operations can be cancelled")
	ErrOperationNotDead    = errors.New("ledger: only dead operations can be revived")
	ErrDirectionNotAllowed = errors.New("ledger: sync direction not allowed by organization config")

	// Mapping errors
	ErrMappingNotFound = errors.New("ledger: entity mapping not found")
	ErrMappingConflict = errors.New("ledger: remote id already mapped to a different local id")

	// Batch errors
	ErrBatchNotFound = errors.New("ledger: sync batch not found")

	// Local store errors
	ErrLocalRecordNotFound = errors.New("ledger: local record not found")

	// Connection errors
	ErrConnectionNotFound = errors.New("ledger: no ledger connection for organization")
	ErrConnectionInactive = errors.New("ledger: ledger connection is inactive")

	// Remote ledger errors, returned by LedgerClient implementations
	ErrLedgerUnavailable = errors.New("ledger: remote system temporarily unavailable")
	ErrLedgerRateLimited = errors.New("ledger: remote system rate limited the request")
	ErrLedgerAuthExpired = errors.New("ledger: remote access token expired")
	ErrLedgerValidation  = errors.New("ledger: remote system rejected the payload")
	ErrRemoteNotFound    = errors.New("ledger: remote record not found")

	// Webhook errors
	ErrWebhookUnknownEntity = errors.New("ledger: webhook references an unknown entity")
	ErrWebhookReplayed      = errors.New("ledger: webhook event already processed")

	// Error registry errors
	ErrRegistryEntryNotFound = errors.New("ledger: error registry entry not found")
)

// RateLimitedError wraps ErrLedgerRateLimited with the cool-down the remote
// system asked for. RetryAfter is zero when the response carried no hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v: retry after %s", ErrLedgerRateLimited, e.RetryAfter)
	}
	return ErrLedgerRateLimited.Error()
}

// Unwrap lets errors.Is(err, ErrLedgerRateLimited) keep working.
func (e *RateLimitedError) Unwrap() error {
	return ErrLedgerRateLimited
}

// CycleError reports a cycle in an organization's dependency configuration.
// Path holds the entity types on the detected cycle, ending where it started.
type CycleError struct {
	Path []EntityType
}

// Error implements the error interface
func (e *CycleError) Error() string {
	return fmt.Sprintf("ledger: dependency cycle detected: %v", e.Path)
}

// Classify maps an execution error onto the failure taxonomy. Unrecognized
// errors are treated as transient so they follow normal retry handling.
func Classify(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrLedgerValidation), errors.Is(err, ErrRemoteNotFound):
		return ErrorCategoryValidation
	case errors.Is(err, ErrLedgerRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrLedgerAuthExpired):
		return ErrorCategoryAuthExpired
	case errors.Is(err, ErrMappingConflict):
		return ErrorCategoryConflict
	default:
		return ErrorCategoryTransient
	}
}
