package ledger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// WebhookEvent
// ---------------------------------------------------------------------------

// WebhookEvent is one change notification received from the ledger system.
// Events are persisted before processing so a crash between receipt and
// enqueue cannot lose a notification.
type WebhookEvent struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	// EventID is the ledger system's identifier for the notification,
	// used to deduplicate redelivered webhooks.
	EventID    string
	EntityType EntityType
	RemoteID   string
	// ChangeKind is the remote operation the event reports.
	ChangeKind OperationKind
	OccurredAt time.Time
	ReceivedAt time.Time
	Payload    json.RawMessage
	Processed  bool
	ProcessedAt *time.Time
}

// NewWebhookEvent records a verified inbound notification.
func NewWebhookEvent(orgID uuid.UUID, eventID string, entityType EntityType, remoteID string, changeKind OperationKind, occurredAt time.Time, payload json.RawMessage) (*WebhookEvent, error) {
	if !entityType.IsValid() {
		return nil, ErrWebhookUnknownEntity
	}
	if !changeKind.IsValid() {
		return nil, ErrInvalidOperationKind
	}
	return &WebhookEvent{
		ID:             uuid.New(),
		OrganizationID: orgID,
		EventID:        eventID,
		EntityType:     entityType,
		RemoteID:       remoteID,
		ChangeKind:     changeKind,
		OccurredAt:     occurredAt,
		ReceivedAt:     time.Now(),
		Payload:        payload,
	}, nil
}

// MarkProcessed records that the event produced its pull operation.
func (e *WebhookEvent) MarkProcessed(now time.Time) {
	e.Processed = true
	e.ProcessedAt = &now
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature the ledger system
// sends with each delivery. The comparison is constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// WebhookEventRepository is the port for the persisted webhook log.
type WebhookEventRepository interface {
	// Save persists a received event. A duplicate (org, event_id) returns
	// ErrWebhookReplayed without inserting.
	Save(ctx context.Context, event *WebhookEvent) error
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	ListUnprocessed(ctx context.Context, orgID uuid.UUID, limit int) ([]*WebhookEvent, error)
}

// WebhookDeduplicator is a fast-path dedup check consulted before hitting
// the database, typically backed by Redis with a TTL.
type WebhookDeduplicator interface {
	// Seen atomically records the event id and reports whether it was
	// already present.
	Seen(ctx context.Context, orgID uuid.UUID, eventID string, ttl time.Duration) (bool, error)
}
