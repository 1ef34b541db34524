package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormWebhookEventRepository implements WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Save persists a received event. The durable log is the dedup source of
// truth, so a duplicate (organization, event id) pair returns
// ErrWebhookReplayed without inserting.
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *ledger.WebhookEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.WebhookEventModel{}).
			Where("organization_id = ? AND event_id = ?", event.OrganizationID, event.EventID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ledger.ErrWebhookReplayed
		}

		var model models.WebhookEventModel
		model.FromDomain(event)
		return tx.Create(&model).Error
	})
}

// MarkProcessed stamps the event once its pull operation is enqueued
func (r *GormWebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed":    true,
			"processed_at": processedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListUnprocessed returns events that never produced a pull, oldest first
func (r *GormWebhookEventRepository) ListUnprocessed(ctx context.Context, orgID uuid.UUID, limit int) ([]*ledger.WebhookEvent, error) {
	var eventModels []models.WebhookEventModel
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND processed = ?", orgID, false).
		Order("received_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]*ledger.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = model.ToDomain()
	}
	return events, nil
}

// Ensure GormWebhookEventRepository implements WebhookEventRepository
var _ ledger.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
