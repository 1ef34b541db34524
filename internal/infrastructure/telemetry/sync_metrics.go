// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a SyncMetricsConfig is missing a meter.
var ErrMeterNil = errors.New("meter is nil")

// SyncMetrics provides sync engine metrics: operation throughput and
// latency, conflicts, batch outcomes, webhook deliveries and queue depth.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	operationTotal *Counter
	conflictTotal  *Counter
	batchTotal     *Counter
	batchMembers   *Counter
	webhookTotal   *Counter

	// Histogram metrics
	operationDuration *Histogram

	// Gauge metrics (point-in-time values)
	queueDepth *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	queueProvider QueueDepthProvider
}

// QueueDepthProvider provides queue depth data for periodic collection.
// This interface lets the telemetry layer observe the queue without
// depending on the sync domain directly.
type QueueDepthProvider interface {
	// GetQueueDepth returns outstanding operation counts per entity type
	// for an organization.
	GetQueueDepth(ctx context.Context, orgID uuid.UUID) (map[string]int64, error)
}

// OrganizationProvider provides organization IDs for periodic collection.
type OrganizationProvider interface {
	GetConnectedOrganizationIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	QueueProvider   QueueDepthProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		queueProvider: cfg.QueueProvider,
	}

	var err error

	sm.operationTotal, err = NewCounter(
		cfg.Meter,
		"batchly_sync_operation_total",
		"Total number of executed sync operations",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.conflictTotal, err = NewCounter(
		cfg.Meter,
		"batchly_sync_conflict_total",
		"Total number of two-sided edit conflicts detected",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	sm.batchTotal, err = NewCounter(
		cfg.Meter,
		"batchly_sync_batch_total",
		"Total number of coordinator batches",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	sm.batchMembers, err = NewCounter(
		cfg.Meter,
		"batchly_sync_batch_member_total",
		"Batch member operations by outcome",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	sm.webhookTotal, err = NewCounter(
		cfg.Meter,
		"batchly_webhook_delivery_total",
		"Total number of webhook deliveries",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	sm.operationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "batchly_sync_operation_duration_seconds",
		Description: "Sync operation execution latency",
		Unit:        "s",
		Boundaries:  []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	if err != nil {
		return nil, err
	}

	sm.queueDepth, err = NewGauge(
		cfg.Meter,
		"batchly_sync_queue_depth",
		"Outstanding sync operations per entity type",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Operation Metrics
// =============================================================================

// RecordOperation records one executed sync operation attempt.
func (sm *SyncMetrics) RecordOperation(ctx context.Context, orgID uuid.UUID, entityType, direction string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	attrs := []attribute.KeyValue{
		AttrOrganizationID.String(orgID.String()),
		AttrEntityType.String(entityType),
		AttrSyncDirection.String(direction),
		AttrOutcome.String(outcome),
	}
	sm.operationTotal.Inc(ctx, attrs...)
	sm.operationDuration.RecordDuration(ctx, duration, attrs...)
}

// RecordConflict records a detected two-sided edit conflict.
func (sm *SyncMetrics) RecordConflict(ctx context.Context, orgID uuid.UUID, entityType, policy string) {
	sm.conflictTotal.Inc(ctx,
		AttrOrganizationID.String(orgID.String()),
		AttrEntityType.String(entityType),
		AttrConflictPolicy.String(policy),
	)
}

// RecordBatch records one closed entity-type batch and its member tallies.
func (sm *SyncMetrics) RecordBatch(ctx context.Context, orgID uuid.UUID, entityType, status string, succeeded, failed int) {
	orgAttr := AttrOrganizationID.String(orgID.String())
	typeAttr := AttrEntityType.String(entityType)
	sm.batchTotal.Inc(ctx, orgAttr, typeAttr, AttrBatchStatus.String(status))
	sm.batchMembers.Add(ctx, int64(succeeded), orgAttr, typeAttr, AttrOutcome.String("succeeded"))
	sm.batchMembers.Add(ctx, int64(failed), orgAttr, typeAttr, AttrOutcome.String("failed"))
}

// RecordWebhook records a webhook delivery outcome (accepted/rejected).
func (sm *SyncMetrics) RecordWebhook(ctx context.Context, outcome string) {
	sm.webhookTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordQueueDepth records the current queue depth for one entity type.
func (sm *SyncMetrics) RecordQueueDepth(ctx context.Context, orgID uuid.UUID, entityType string, depth int64) {
	sm.queueDepth.Record(ctx, depth,
		AttrOrganizationID.String(orgID.String()),
		AttrEntityType.String(entityType),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic queue depth collection.
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, orgs OrganizationProvider, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go sm.runPeriodicCollection(ctx, orgs, interval)
	})
}

func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, orgs OrganizationProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectQueueDepth(ctx, orgs)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectQueueDepth(ctx, orgs)
		}
	}
}

func (sm *SyncMetrics) collectQueueDepth(ctx context.Context, orgs OrganizationProvider) {
	if sm.queueProvider == nil {
		sm.logger.Debug("No queue provider configured, skipping queue depth collection")
		return
	}

	orgIDs, err := orgs.GetConnectedOrganizationIDs(ctx)
	if err != nil {
		sm.logger.Error("Failed to get organization IDs for metrics collection", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		depths, err := sm.queueProvider.GetQueueDepth(ctx, orgID)
		if err != nil {
			sm.logger.Warn("Failed to get queue depth for organization",
				zap.String("organization_id", orgID.String()),
				zap.Error(err),
			)
			continue
		}
		for entityType, depth := range depths {
			sm.RecordQueueDepth(ctx, orgID, entityType, depth)
		}
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Sync metrics attribute keys not already defined in metrics.go
var (
	AttrOrganizationID = attribute.Key("organization_id")
	AttrEntityType     = attribute.Key("entity_type")
	AttrSyncDirection  = attribute.Key("sync_direction")
	AttrOutcome        = attribute.Key("outcome")
	AttrConflictPolicy = attribute.Key("conflict_policy")
	AttrBatchStatus    = attribute.Key("batch_status")
)
