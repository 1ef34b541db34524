package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
)

// defaultBatchSize bounds how many operations one claim chunk takes.
const defaultBatchSize = 50

// Coordinator drains the sync queue one organization at a time. Each pass
// walks the organization's entity types in dependency order and runs one
// batch per type: a type whose required dependencies are settled gets a
// SyncBatch and has its due operations claimed and executed in chunks; a
// type still waiting on a required dependency is skipped outright, leaving
// its operations queued and no batch row behind.
type Coordinator struct {
	operations   ledger.OperationRepository
	dependencies ledger.DependencyRepository
	batches      ledger.BatchRepository
	coolDown     ledger.CoolDown
	executor     *Executor
	batchSize    int
	metrics      *telemetry.SyncMetrics
	logger       *zap.Logger
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(
	operations ledger.OperationRepository,
	dependencies ledger.DependencyRepository,
	batches ledger.BatchRepository,
	coolDown ledger.CoolDown,
	executor *Executor,
	batchSize int,
	metrics *telemetry.SyncMetrics,
	logger *zap.Logger,
) *Coordinator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Coordinator{
		operations:   operations,
		dependencies: dependencies,
		batches:      batches,
		coolDown:     coolDown,
		executor:     executor,
		batchSize:    batchSize,
		metrics:      metrics,
		logger:       logger,
	}
}

// RunOnce executes one coordinator pass for an organization. It returns the
// closed batches, one per entity type that had work and was ready, or nil
// when there was nothing to do or the organization is cooling down after a
// rate limit.
func (c *Coordinator) RunOnce(ctx context.Context, orgID uuid.UUID) ([]*ledger.SyncBatch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_coordinator", "run_once")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String())

	cooling, err := c.coolDown.Active(ctx, orgID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if cooling {
		c.logger.Debug("Skipping coordinator pass, organization is cooling down",
			zap.String("organization_id", orgID.String()))
		return nil, nil
	}

	deps, err := c.dependencies.ListByOrganization(ctx, orgID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	graph := ledger.NewDependencyGraph(deps)
	order, err := graph.TopologicalOrder()
	if err != nil {
		// a cycle in the configuration blocks the whole organization
		telemetry.RecordError(span, err)
		return nil, err
	}

	outstanding, err := c.operations.CountOutstanding(ctx, orgID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	failedTypes := make(map[ledger.EntityType]bool)
	var batches []*ledger.SyncBatch

	for _, entityType := range order {
		if outstanding[entityType] == 0 {
			continue
		}

		if blocked := c.blockingDependency(graph, entityType, failedTypes, outstanding); blocked != "" {
			c.logger.Debug("Entity type not ready, leaving its operations queued",
				zap.String("organization_id", orgID.String()),
				zap.String("entity_type", string(entityType)),
				zap.String("blocked_on", string(blocked)),
			)
			continue
		}

		batch, err := c.runEntityType(ctx, orgID, entityType, failedTypes)
		if err != nil {
			telemetry.RecordError(span, err)
			return batches, err
		}
		if batch == nil {
			continue
		}
		batches = append(batches, batch)

		// the batch drained queue rows, so downstream readiness checks
		// need fresh counts
		outstanding, err = c.operations.CountOutstanding(ctx, orgID)
		if err != nil {
			telemetry.RecordError(span, err)
			return batches, err
		}
	}

	return batches, nil
}

// runEntityType drains the due operations of one ready entity type. The
// batch is opened lazily on the first successful claim, so a type whose due
// work was snapped up by a racing worker produces no batch.
func (c *Coordinator) runEntityType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, failedTypes map[ledger.EntityType]bool) (*ledger.SyncBatch, error) {
	var batch *ledger.SyncBatch

	for {
		claimed, err := c.operations.DequeueReady(ctx, orgID, entityType, time.Now(), c.batchSize)
		if err != nil {
			return batch, err
		}
		if len(claimed) == 0 {
			break
		}

		if batch == nil {
			batch = ledger.NewSyncBatch(orgID, entityType)
			if err := c.batches.Create(ctx, batch); err != nil {
				return nil, err
			}
		}
		batch.RecordClaimed(len(claimed), time.Now())

		for _, op := range claimed {
			op.BatchID = &batch.ID
			if err := c.executor.ExecuteClaimed(ctx, op); err != nil {
				batch.RecordFailure(time.Now())
				failedTypes[entityType] = true
				continue
			}
			batch.RecordSuccess(time.Now())
		}

		// a short chunk means the due work is exhausted; failed operations
		// were rescheduled into the future and stay out of the next claim
		if len(claimed) < c.batchSize {
			break
		}
	}

	if batch == nil {
		return nil, nil
	}

	batch.Complete(time.Now())
	if err := c.batches.Update(ctx, batch); err != nil {
		return batch, err
	}

	c.metrics.RecordBatch(ctx, orgID, string(batch.EntityType), string(batch.Status), batch.SucceededCount, batch.FailedCount)
	c.logger.Info("Entity type batch completed",
		zap.String("organization_id", orgID.String()),
		zap.String("batch_id", batch.ID.String()),
		zap.String("entity_type", string(batch.EntityType)),
		zap.String("status", string(batch.Status)),
		zap.Int("total", batch.TotalCount),
		zap.Int("succeeded", batch.SucceededCount),
		zap.Int("failed", batch.FailedCount),
	)
	return batch, nil
}

// blockingDependency returns the first required dependency that makes the
// type unsafe this pass: either it failed earlier in the batch walk, or it
// still has queued work of its own. Optional edges order the walk but never
// block.
func (c *Coordinator) blockingDependency(
	graph *ledger.DependencyGraph,
	entityType ledger.EntityType,
	failedTypes map[ledger.EntityType]bool,
	outstanding map[ledger.EntityType]int64,
) ledger.EntityType {
	for _, dep := range graph.RequiredDependenciesOf(entityType) {
		if failedTypes[dep] {
			return dep
		}
		if outstanding[dep] > 0 {
			return dep
		}
	}
	return ""
}
