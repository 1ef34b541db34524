package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
)

// QueueService manages the durable sync operation queue: idempotent
// enqueue, cancellation, dead letter review and queue inspection.
type QueueService struct {
	operations ledger.OperationRepository
	configs    ledger.SyncConfigRepository
	logger     *zap.Logger
}

// NewQueueService creates a new QueueService
func NewQueueService(operations ledger.OperationRepository, configs ledger.SyncConfigRepository, logger *zap.Logger) *QueueService {
	return &QueueService{
		operations: operations,
		configs:    configs,
		logger:     logger,
	}
}

// EnqueueRequest describes one sync operation to queue.
type EnqueueRequest struct {
	OrganizationID uuid.UUID
	EntityType     ledger.EntityType
	EntityID       string
	Kind           ledger.OperationKind
	Direction      ledger.SyncDirection
	Payload        []byte
	Priority       int
}

// EnqueueResult reports the queued operation. Deduplicated is true when an
// outstanding operation with the same idempotency key absorbed the request.
type EnqueueResult struct {
	Operation    *ledger.SyncOperation
	Deduplicated bool
}

// Enqueue validates the request against the organization's direction policy
// and queues the operation. Duplicate requests return the outstanding
// operation instead of creating a second one.
func (s *QueueService) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_queue", "enqueue")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, req.OrganizationID.String(),
		telemetry.SpanAttrEntityType, string(req.EntityType),
		telemetry.SpanAttrDirection, string(req.Direction),
	)

	cfg, err := s.configs.FindByEntityType(ctx, req.OrganizationID, req.EntityType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !cfg.AllowsDirection(req.Direction) {
		return nil, ledger.ErrDirectionNotAllowed
	}

	priority := req.Priority
	if priority <= 0 {
		priority = ledger.PriorityPolling
	}

	op, err := ledger.NewSyncOperation(req.OrganizationID, req.EntityType, req.EntityID, req.Kind, req.Direction, req.Payload, priority)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	queued, err := s.operations.Enqueue(ctx, op)
	if errors.Is(err, ledger.ErrDuplicateOperation) {
		s.logger.Debug("Enqueue deduplicated",
			zap.String("organization_id", req.OrganizationID.String()),
			zap.String("entity_type", string(req.EntityType)),
			zap.String("entity_id", req.EntityID),
			zap.String("operation_id", queued.ID.String()),
		)
		return &EnqueueResult{Operation: queued, Deduplicated: true}, nil
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Sync operation enqueued",
		zap.String("operation_id", queued.ID.String()),
		zap.String("organization_id", req.OrganizationID.String()),
		zap.String("entity_type", string(req.EntityType)),
		zap.String("kind", string(req.Kind)),
		zap.String("direction", string(req.Direction)),
		zap.Int("priority", queued.Priority),
	)
	return &EnqueueResult{Operation: queued}, nil
}

// Cancel withdraws a queued operation before a worker claims it.
func (s *QueueService) Cancel(ctx context.Context, orgID, operationID uuid.UUID) error {
	op, err := s.findForOrg(ctx, orgID, operationID)
	if err != nil {
		return err
	}
	if err := op.Cancel(time.Now()); err != nil {
		return err
	}
	return s.operations.Update(ctx, op)
}

// RetryDead returns a dead operation to the queue with a fresh retry budget.
func (s *QueueService) RetryDead(ctx context.Context, orgID, operationID uuid.UUID) (*ledger.SyncOperation, error) {
	op, err := s.findForOrg(ctx, orgID, operationID)
	if err != nil {
		return nil, err
	}
	if err := op.Revive(time.Now()); err != nil {
		return nil, err
	}
	if err := s.operations.Update(ctx, op); err != nil {
		return nil, err
	}
	s.logger.Info("Dead operation revived",
		zap.String("operation_id", op.ID.String()),
		zap.String("organization_id", orgID.String()),
	)
	return op, nil
}

// GetOperation retrieves one operation scoped to the organization.
func (s *QueueService) GetOperation(ctx context.Context, orgID, operationID uuid.UUID) (*ledger.SyncOperation, error) {
	return s.findForOrg(ctx, orgID, operationID)
}

// ListOperations lists queue contents with filtering.
func (s *QueueService) ListOperations(ctx context.Context, filter ledger.OperationFilter) ([]*ledger.SyncOperation, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.operations.List(ctx, filter)
}

// ListDead returns dead-lettered operations for operator review.
func (s *QueueService) ListDead(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncOperation, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.operations.ListDead(ctx, orgID, limit, offset)
}

// QueueDepth reports outstanding operation counts per entity type.
func (s *QueueService) QueueDepth(ctx context.Context, orgID uuid.UUID) (map[ledger.EntityType]int64, error) {
	return s.operations.CountOutstanding(ctx, orgID)
}

func (s *QueueService) findForOrg(ctx context.Context, orgID, operationID uuid.UUID) (*ledger.SyncOperation, error) {
	op, err := s.operations.FindByID(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if op.OrganizationID != orgID {
		return nil, ledger.ErrOperationNotFound
	}
	return op, nil
}
