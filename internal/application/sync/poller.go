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

// Poller is the fallback change-detection path for organizations whose
// webhooks are missing or delayed. For each entity type whose poll interval
// has elapsed it asks the ledger system for records changed since the last
// poll and enqueues low-priority pull operations for them.
type Poller struct {
	configs     ledger.SyncConfigRepository
	connections ledger.ConnectionRepository
	client      ledger.LedgerClient
	queue       *QueueService
	logger      *zap.Logger
}

// NewPoller creates a new Poller
func NewPoller(
	configs ledger.SyncConfigRepository,
	connections ledger.ConnectionRepository,
	client ledger.LedgerClient,
	queue *QueueService,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		configs:     configs,
		connections: connections,
		client:      client,
		queue:       queue,
		logger:      logger,
	}
}

// PollOnce runs one polling pass for an organization and returns how many
// pull operations it enqueued.
func (p *Poller) PollOnce(ctx context.Context, orgID uuid.UUID) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_poller", "poll_once")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String())

	conn, err := p.connections.FindByOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, ledger.ErrConnectionNotFound) {
			return 0, nil
		}
		telemetry.RecordError(span, err)
		return 0, err
	}
	if !conn.IsUsable() {
		return 0, nil
	}

	configs, err := p.configs.ListByOrganization(ctx, orgID)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	now := time.Now()
	enqueued := 0
	for _, cfg := range configs {
		if !cfg.PollDue(now) {
			continue
		}

		since := now.Add(-cfg.PollInterval)
		if cfg.LastPolledAt != nil {
			since = *cfg.LastPolledAt
		}

		changed, err := p.client.ChangedSince(ctx, conn, cfg.EntityType, since)
		if err != nil {
			p.logger.Warn("Polling pass failed for entity type",
				zap.String("organization_id", orgID.String()),
				zap.String("entity_type", string(cfg.EntityType)),
				zap.Error(err))
			continue
		}

		for _, record := range changed {
			_, err := p.queue.Enqueue(ctx, EnqueueRequest{
				OrganizationID: orgID,
				EntityType:     cfg.EntityType,
				EntityID:       record.RemoteID,
				Kind:           ledger.OperationKindUpdate,
				Direction:      ledger.SyncDirectionPull,
				Payload:        record.Payload,
				Priority:       ledger.PriorityPolling,
			})
			if err != nil {
				if errors.Is(err, ledger.ErrDirectionNotAllowed) {
					break
				}
				telemetry.RecordError(span, err)
				return enqueued, err
			}
			enqueued++
		}

		cfg.MarkPolled(now)
		if err := p.configs.Save(ctx, cfg); err != nil {
			telemetry.RecordError(span, err)
			return enqueued, err
		}
	}

	if enqueued > 0 {
		p.logger.Info("Polling pass enqueued pull operations",
			zap.String("organization_id", orgID.String()),
			zap.Int("enqueued", enqueued))
	}
	return enqueued, nil
}
