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

// webhookDedupTTL is how long processed event ids stay in the fast-path
// dedup cache. Ledger systems redeliver within minutes, not days.
const webhookDedupTTL = 24 * time.Hour

// WebhookService ingests change notifications from the ledger system,
// verifies their signature, deduplicates redeliveries and turns each change
// into a high-priority pull operation.
type WebhookService struct {
	events  ledger.WebhookEventRepository
	dedup   ledger.WebhookDeduplicator
	queue   *QueueService
	secret  string
	metrics *telemetry.SyncMetrics
	logger  *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	events ledger.WebhookEventRepository,
	dedup ledger.WebhookDeduplicator,
	queue *QueueService,
	secret string,
	metrics *telemetry.SyncMetrics,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		events:  events,
		dedup:   dedup,
		queue:   queue,
		secret:  secret,
		metrics: metrics,
		logger:  logger,
	}
}

// webhookPayload mirrors the ledger system's delivery format: one envelope
// holding change notifications for several entities.
type webhookPayload struct {
	EventNotifications []struct {
		EventID        string    `json:"eventId"`
		OrganizationID uuid.UUID `json:"realmId"`
		Entities       []struct {
			Name        string    `json:"name"`
			ID          string    `json:"id"`
			Operation   string    `json:"operation"`
			LastUpdated time.Time `json:"lastUpdated"`
		} `json:"dataChangeEvent"`
	} `json:"eventNotifications"`
}

// IngestResult summarizes one processed delivery.
type IngestResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// Ingest verifies and processes one webhook delivery. The raw body and the
// signature header come straight from the HTTP layer; verification happens
// here so the handler stays thin.
func (s *WebhookService) Ingest(ctx context.Context, body []byte, signature string) (*IngestResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync_webhook", "ingest")
	defer span.End()

	if !ledger.VerifyWebhookSignature(body, signature, s.secret) {
		s.metrics.RecordWebhook(ctx, "rejected")
		return nil, ErrWebhookSignatureInvalid
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: %v", ErrWebhookMalformed, err)
	}

	result := &IngestResult{}
	for _, notification := range payload.EventNotifications {
		for i, entity := range notification.Entities {
			entityType, ok := mapRemoteEntityName(entity.Name)
			if !ok {
				result.Skipped++
				s.logger.Warn("Webhook references unknown entity type",
					zap.String("name", entity.Name),
					zap.String("event_id", notification.EventID))
				continue
			}
			kind, ok := mapRemoteOperation(entity.Operation)
			if !ok {
				result.Skipped++
				continue
			}

			// one notification can carry several entities; key each change
			// separately so partial redeliveries still dedup correctly
			eventID := fmt.Sprintf("%s:%d", notification.EventID, i)
			if err := s.processChange(ctx, notification.OrganizationID, eventID, entityType, entity.ID, kind, entity.LastUpdated); err != nil {
				if errors.Is(err, ledger.ErrWebhookReplayed) {
					result.Duplicates++
					continue
				}
				telemetry.RecordError(span, err)
				return nil, err
			}
			result.Accepted++
		}
	}

	s.metrics.RecordWebhook(ctx, "accepted")
	s.logger.Info("Webhook delivery processed",
		zap.Int("accepted", result.Accepted),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *WebhookService) processChange(ctx context.Context, orgID uuid.UUID, eventID string, entityType ledger.EntityType, remoteID string, kind ledger.OperationKind, occurredAt time.Time) error {
	seen, err := s.dedup.Seen(ctx, orgID, eventID, webhookDedupTTL)
	if err != nil {
		// the durable log below still catches duplicates; keep going
		s.logger.Warn("Webhook dedup cache unavailable", zap.Error(err))
	} else if seen {
		return ledger.ErrWebhookReplayed
	}

	event, err := ledger.NewWebhookEvent(orgID, eventID, entityType, remoteID, kind, occurredAt, nil)
	if err != nil {
		return err
	}
	if err := s.events.Save(ctx, event); err != nil {
		return err
	}

	_, err = s.queue.Enqueue(ctx, EnqueueRequest{
		OrganizationID: orgID,
		EntityType:     entityType,
		EntityID:       remoteID,
		Kind:           kind,
		Direction:      ledger.SyncDirectionPull,
		Priority:       ledger.PriorityWebhook,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDirectionNotAllowed) {
			// push-only types drop remote notifications on the floor
			return s.events.MarkProcessed(ctx, event.ID, time.Now())
		}
		return err
	}
	return s.events.MarkProcessed(ctx, event.ID, time.Now())
}

// ReplayUnprocessed re-enqueues pull operations for events persisted before
// a crash interrupted their processing.
func (s *WebhookService) ReplayUnprocessed(ctx context.Context, orgID uuid.UUID, limit int) (int, error) {
	events, err := s.events.ListUnprocessed(ctx, orgID, limit)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, event := range events {
		_, err := s.queue.Enqueue(ctx, EnqueueRequest{
			OrganizationID: event.OrganizationID,
			EntityType:     event.EntityType,
			EntityID:       event.RemoteID,
			Kind:           event.ChangeKind,
			Direction:      ledger.SyncDirectionPull,
			Priority:       ledger.PriorityWebhook,
		})
		if err != nil && !errors.Is(err, ledger.ErrDirectionNotAllowed) {
			return replayed, err
		}
		if err := s.events.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
			return replayed, err
		}
		replayed++
	}
	return replayed, nil
}

// mapRemoteEntityName translates the ledger system's entity names onto the
// local taxonomy.
func mapRemoteEntityName(name string) (ledger.EntityType, bool) {
	switch name {
	case "Account":
		return ledger.EntityTypeAccount, true
	case "Customer":
		return ledger.EntityTypeCustomer, true
	case "Vendor":
		return ledger.EntityTypeVendor, true
	case "Item":
		return ledger.EntityTypeItem, true
	case "Invoice":
		return ledger.EntityTypeInvoice, true
	case "Bill":
		return ledger.EntityTypeBill, true
	case "Payment":
		return ledger.EntityTypePayment, true
	case "Estimate", "SalesOrder":
		return ledger.EntityTypeSalesOrder, true
	case "PurchaseOrder":
		return ledger.EntityTypePurchaseOrder, true
	case "InventoryAdjustment":
		return ledger.EntityTypeInventory, true
	default:
		return "", false
	}
}

// mapRemoteOperation translates the ledger system's change verbs.
func mapRemoteOperation(operation string) (ledger.OperationKind, bool) {
	switch operation {
	case "Create":
		return ledger.OperationKindCreate, true
	case "Update", "Merge":
		return ledger.OperationKindUpdate, true
	case "Delete", "Remove", "Void":
		return ledger.OperationKindDelete, true
	default:
		return "", false
	}
}
