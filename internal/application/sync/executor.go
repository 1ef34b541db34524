package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
)

// rateLimitCoolDown is how long the whole organization backs off after the
// ledger system throttles any single operation without saying when to come
// back. A Retry-After carried on the throttle response takes precedence.
const rateLimitCoolDown = time.Minute

// Executor runs one claimed sync operation end to end: token refresh,
// field mapping, the remote call, mapping upkeep, conflict resolution and
// failure classification. It never panics the worker; every outcome lands
// in the operation's lifecycle state.
type Executor struct {
	operations  ledger.OperationRepository
	mappings    ledger.MappingStore
	connections ledger.ConnectionRepository
	fieldMaps   ledger.FieldMappingRepository
	client      ledger.LedgerClient
	tokens      ledger.TokenSource
	local       ledger.LocalStore
	registry    ledger.ErrorRegistry
	batches     ledger.BatchRepository
	coolDown    ledger.CoolDown
	backoff     ledger.BackoffPolicy
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
}

// NewExecutor creates a new Executor
func NewExecutor(
	operations ledger.OperationRepository,
	mappings ledger.MappingStore,
	connections ledger.ConnectionRepository,
	fieldMaps ledger.FieldMappingRepository,
	client ledger.LedgerClient,
	tokens ledger.TokenSource,
	local ledger.LocalStore,
	registry ledger.ErrorRegistry,
	batches ledger.BatchRepository,
	coolDown ledger.CoolDown,
	backoff ledger.BackoffPolicy,
	metrics *telemetry.SyncMetrics,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		operations:  operations,
		mappings:    mappings,
		connections: connections,
		fieldMaps:   fieldMaps,
		client:      client,
		tokens:      tokens,
		local:       local,
		registry:    registry,
		batches:     batches,
		coolDown:    coolDown,
		backoff:     backoff,
		metrics:     metrics,
		logger:      logger,
	}
}

// ExecuteClaimed runs one in-progress operation and persists the outcome.
// The returned error reflects the attempt; a non-nil error does not mean
// the operation is lost, only that this attempt failed.
func (e *Executor) ExecuteClaimed(ctx context.Context, op *ledger.SyncOperation) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_executor", "execute")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOperationID, op.ID.String(),
		telemetry.SpanAttrOrganizationID, op.OrganizationID.String(),
		telemetry.SpanAttrEntityType, string(op.EntityType),
		telemetry.SpanAttrDirection, string(op.Direction),
	)

	started := time.Now()
	attemptErr := e.attempt(ctx, op)
	duration := time.Since(started)

	now := time.Now()
	if attemptErr == nil {
		if err := op.Succeed(now); err != nil {
			return err
		}
		if err := e.operations.Update(ctx, op); err != nil {
			return err
		}
		e.recordRun(ctx, op, true, "", "", duration, now)
		e.metrics.RecordOperation(ctx, op.OrganizationID, string(op.EntityType), string(op.Direction), true, duration)
		e.logger.Info("Sync operation succeeded",
			zap.String("operation_id", op.ID.String()),
			zap.String("entity_type", string(op.EntityType)),
			zap.Duration("duration", duration),
		)
		return nil
	}

	category := ledger.Classify(attemptErr)
	telemetry.RecordError(span, attemptErr)

	if category == ledger.ErrorCategoryRateLimited {
		coolFor := rateLimitCoolDown
		var rateLimited *ledger.RateLimitedError
		if errors.As(attemptErr, &rateLimited) && rateLimited.RetryAfter > 0 {
			coolFor = rateLimited.RetryAfter
		}
		if err := e.coolDown.Arm(ctx, op.OrganizationID, coolFor); err != nil {
			e.logger.Warn("Failed to arm rate limit cool-down", zap.Error(err))
		}
	}

	if err := op.Fail(now, category, attemptErr.Error(), e.backoff); err != nil {
		return err
	}
	if err := e.operations.Update(ctx, op); err != nil {
		return err
	}

	e.recordRun(ctx, op, false, category, attemptErr.Error(), duration, now)
	e.recordError(ctx, op, category, attemptErr)
	e.metrics.RecordOperation(ctx, op.OrganizationID, string(op.EntityType), string(op.Direction), false, duration)

	e.logger.Warn("Sync operation failed",
		zap.String("operation_id", op.ID.String()),
		zap.String("entity_type", string(op.EntityType)),
		zap.String("category", string(category)),
		zap.String("status", string(op.Status)),
		zap.Int("retry_count", op.RetryCount),
		zap.Error(attemptErr),
	)
	return attemptErr
}

// attempt performs the remote work without touching lifecycle state.
func (e *Executor) attempt(ctx context.Context, op *ledger.SyncOperation) error {
	conn, err := e.connections.FindByOrganization(ctx, op.OrganizationID)
	if err != nil {
		return err
	}
	if !conn.IsUsable() {
		return ledger.ErrConnectionInactive
	}
	if conn.TokenExpired(time.Now()) {
		if err := e.refreshToken(ctx, conn); err != nil {
			return err
		}
	}

	switch op.Direction {
	case ledger.SyncDirectionPush:
		err = e.push(ctx, conn, op)
	case ledger.SyncDirectionPull:
		err = e.pull(ctx, conn, op)
	default:
		return ledger.ErrInvalidDirection
	}

	// an expired token discovered mid-flight gets one refresh and retry
	if errors.Is(err, ledger.ErrLedgerAuthExpired) {
		if refreshErr := e.refreshToken(ctx, conn); refreshErr != nil {
			return refreshErr
		}
		switch op.Direction {
		case ledger.SyncDirectionPush:
			return e.push(ctx, conn, op)
		default:
			return e.pull(ctx, conn, op)
		}
	}
	return err
}

func (e *Executor) refreshToken(ctx context.Context, conn *ledger.LedgerConnection) error {
	access, refresh, expiresAt, err := e.tokens.Refresh(ctx, conn)
	now := time.Now()
	if err != nil {
		conn.MarkExpired(now)
		if updateErr := e.connections.Update(ctx, conn); updateErr != nil {
			e.logger.Error("Failed to persist expired connection", zap.Error(updateErr))
		}
		return fmt.Errorf("%w: %v", ledger.ErrLedgerAuthExpired, err)
	}
	conn.ApplyRefresh(access, refresh, expiresAt, now)
	return e.connections.Update(ctx, conn)
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

func (e *Executor) push(ctx context.Context, conn *ledger.LedgerConnection, op *ledger.SyncOperation) error {
	fieldMaps, err := e.fieldMaps.ListByEntityType(ctx, op.OrganizationID, op.EntityType)
	if err != nil {
		return err
	}

	var remotePayload json.RawMessage
	if op.Kind != ledger.OperationKindDelete {
		remotePayload, err = ledger.MapPayload(op.Payload, fieldMaps)
		if err != nil {
			return err
		}
	}

	mapping, err := e.mappings.FindByLocalID(ctx, op.OrganizationID, op.EntityType, op.EntityID)
	if err != nil && !errors.Is(err, ledger.ErrMappingNotFound) {
		return err
	}

	switch op.Kind {
	case ledger.OperationKindCreate:
		if mapping != nil {
			// already linked; treat the create as an update of the counterpart
			return e.pushUpdate(ctx, conn, op, mapping, remotePayload)
		}
		record, err := e.client.Create(ctx, conn, op.EntityType, remotePayload)
		if err != nil {
			return err
		}
		created, err := ledger.NewEntityMapping(op.OrganizationID, op.EntityType, op.EntityID, record.RemoteID, record.Revision)
		if err != nil {
			return err
		}
		return e.mappings.Save(ctx, created, ledger.MergePolicyNone)

	case ledger.OperationKindUpdate:
		if mapping == nil {
			return fmt.Errorf("%w: %s %s has no remote counterpart", ledger.ErrMappingNotFound, op.EntityType, op.EntityID)
		}
		return e.pushUpdate(ctx, conn, op, mapping, remotePayload)

	case ledger.OperationKindDelete:
		if mapping == nil {
			// nothing to delete remotely; the pair was never linked
			return nil
		}
		if err := e.client.Delete(ctx, conn, op.EntityType, mapping.RemoteID, mapping.RemoteRevision); err != nil && !errors.Is(err, ledger.ErrRemoteNotFound) {
			return err
		}
		return e.mappings.Delete(ctx, op.OrganizationID, op.EntityType, op.EntityID)

	default:
		return ledger.ErrInvalidOperationKind
	}
}

func (e *Executor) pushUpdate(ctx context.Context, conn *ledger.LedgerConnection, op *ledger.SyncOperation, mapping *ledger.EntityMapping, payload json.RawMessage) error {
	record, err := e.client.Update(ctx, conn, op.EntityType, mapping.RemoteID, mapping.RemoteRevision, payload)
	if err != nil {
		return err
	}
	mapping.Touch(ledger.SyncDirectionPush, record.Revision, time.Now())
	return e.mappings.Save(ctx, mapping, ledger.MergePolicyNone)
}

// ---------------------------------------------------------------------------
// Pull
// ---------------------------------------------------------------------------

func (e *Executor) pull(ctx context.Context, conn *ledger.LedgerConnection, op *ledger.SyncOperation) error {
	// for pulls, EntityID carries the remote id
	remoteID := op.EntityID

	mapping, err := e.mappings.FindByRemoteID(ctx, op.OrganizationID, op.EntityType, remoteID)
	if err != nil && !errors.Is(err, ledger.ErrMappingNotFound) {
		return err
	}

	if op.Kind == ledger.OperationKindDelete {
		if mapping == nil {
			return nil
		}
		now := time.Now()
		if err := e.local.MarkDeleted(ctx, op.OrganizationID, op.EntityType, mapping.LocalID, now); err != nil {
			return err
		}
		return e.mappings.Delete(ctx, op.OrganizationID, op.EntityType, mapping.LocalID)
	}

	record, err := e.client.Fetch(ctx, conn, op.EntityType, remoteID)
	if err != nil {
		return err
	}

	if mapping != nil {
		local, err := e.local.Get(ctx, op.OrganizationID, op.EntityType, mapping.LocalID)
		if err != nil && !errors.Is(err, ledger.ErrLocalRecordNotFound) {
			return err
		}
		if local != nil && mapping.HasLocalChanges(local.UpdatedAt) && mapping.HasRemoteChanges(record.UpdatedAt) {
			if e.resolveConflict(ctx, conn, op, mapping, local) {
				return nil
			}
		}
	}

	return e.applyRemote(ctx, op, mapping, record)
}

// resolveConflict handles the both-sides-changed case. It returns true when
// the local version won and the remote payload must not be applied.
func (e *Executor) resolveConflict(ctx context.Context, conn *ledger.LedgerConnection, op *ledger.SyncOperation, mapping *ledger.EntityMapping, local *ledger.LocalRecord) bool {
	policy := conn.ConflictPolicy
	if !policy.IsValid() {
		policy = ledger.ConflictPolicyRemoteWins
	}

	e.metrics.RecordConflict(ctx, op.OrganizationID, string(op.EntityType), string(policy))
	e.logger.Info("Sync conflict detected",
		zap.String("operation_id", op.ID.String()),
		zap.String("entity_type", string(op.EntityType)),
		zap.String("local_id", mapping.LocalID),
		zap.String("remote_id", mapping.RemoteID),
		zap.String("policy", string(policy)),
	)

	if policy != ledger.ConflictPolicyLocalWins {
		return false
	}

	// local wins: keep the portal's version and push it back out
	pushOp, err := ledger.NewSyncOperation(op.OrganizationID, op.EntityType, mapping.LocalID, ledger.OperationKindUpdate, ledger.SyncDirectionPush, local.Payload, ledger.PriorityManual)
	if err == nil {
		if _, enqueueErr := e.operations.Enqueue(ctx, pushOp); enqueueErr != nil && !errors.Is(enqueueErr, ledger.ErrDuplicateOperation) {
			e.logger.Warn("Failed to enqueue counter-push after local-wins conflict", zap.Error(enqueueErr))
		}
	}
	return true
}

func (e *Executor) applyRemote(ctx context.Context, op *ledger.SyncOperation, mapping *ledger.EntityMapping, record *ledger.RemoteRecord) error {
	fieldMaps, err := e.fieldMaps.ListByEntityType(ctx, op.OrganizationID, op.EntityType)
	if err != nil {
		return err
	}
	localPayload, err := ledger.UnmapPayload(record.Payload, fieldMaps)
	if err != nil {
		return err
	}

	now := time.Now()
	if mapping == nil {
		// first sight of this remote record; local id mirrors the remote id
		// until the portal assigns its own
		localID := fmt.Sprintf("%s-%s", op.EntityType, record.RemoteID)
		mapping, err = ledger.NewEntityMapping(op.OrganizationID, op.EntityType, localID, record.RemoteID, record.Revision)
		if err != nil {
			return err
		}
		if err := e.mappings.Save(ctx, mapping, ledger.MergePolicyNone); err != nil {
			return err
		}
	}

	if err := e.local.Upsert(ctx, &ledger.LocalRecord{
		OrganizationID: op.OrganizationID,
		EntityType:     op.EntityType,
		LocalID:        mapping.LocalID,
		Payload:        localPayload,
		UpdatedAt:      now,
	}); err != nil {
		return err
	}

	mapping.Touch(ledger.SyncDirectionPull, record.Revision, now)
	return e.mappings.Save(ctx, mapping, ledger.MergePolicyNone)
}

// ---------------------------------------------------------------------------
// Bookkeeping
// ---------------------------------------------------------------------------

func (e *Executor) recordRun(ctx context.Context, op *ledger.SyncOperation, succeeded bool, category ledger.ErrorCategory, message string, duration time.Duration, ranAt time.Time) {
	run := &ledger.SyncRun{
		ID:             uuid.New(),
		OrganizationID: op.OrganizationID,
		OperationID:    op.ID,
		BatchID:        op.BatchID,
		EntityType:     op.EntityType,
		Direction:      op.Direction,
		Succeeded:      succeeded,
		ErrorCategory:  category,
		ErrorMessage:   message,
		Duration:       duration,
		RanAt:          ranAt,
	}
	if err := e.batches.RecordRun(ctx, run); err != nil {
		e.logger.Warn("Failed to record sync run", zap.Error(err))
	}
}

func (e *Executor) recordError(ctx context.Context, op *ledger.SyncOperation, category ledger.ErrorCategory, attemptErr error) {
	entry := ledger.NewErrorEntry(op.OrganizationID, op.EntityType, category, errorFingerprint(category, attemptErr), attemptErr.Error())
	if err := e.registry.Record(ctx, entry); err != nil {
		e.logger.Warn("Failed to record error registry entry", zap.Error(err))
	}
}

// errorFingerprint collapses equivalent failures into one registry row.
// Sentinel-based errors share a fingerprint per category and root cause.
func errorFingerprint(category ledger.ErrorCategory, err error) string {
	root := err
	for {
		unwrapped := errors.Unwrap(root)
		if unwrapped == nil {
			break
		}
		root = unwrapped
	}
	return fmt.Sprintf("%s:%s", category, root.Error())
}
