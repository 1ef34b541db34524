package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormLocalRecordRepository implements LocalStore using GORM
type GormLocalRecordRepository struct {
	db *gorm.DB
}

// NewGormLocalRecordRepository creates a new GormLocalRecordRepository
func NewGormLocalRecordRepository(db *gorm.DB) *GormLocalRecordRepository {
	return &GormLocalRecordRepository{db: db}
}

// Get reads the portal-side copy of a mirrored entity
func (r *GormLocalRecordRepository) Get(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) (*ledger.LocalRecord, error) {
	var model models.LocalRecordModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND local_id = ?", orgID, entityType, localID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrLocalRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert writes the record, creating it when absent
func (r *GormLocalRecordRepository) Upsert(ctx context.Context, record *ledger.LocalRecord) error {
	var model models.LocalRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "entity_type"},
				{Name: "local_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "deleted", "updated_at"}),
		}).
		Create(&model).Error
}

// MarkDeleted tombstones the record when a remote delete propagates
func (r *GormLocalRecordRepository) MarkDeleted(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string, deletedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.LocalRecordModel{}).
		Where("organization_id = ? AND entity_type = ? AND local_id = ?", orgID, entityType, localID).
		Updates(map[string]any{
			"deleted":    true,
			"updated_at": deletedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrLocalRecordNotFound
	}
	return nil
}

// Ensure GormLocalRecordRepository implements LocalStore
var _ ledger.LocalStore = (*GormLocalRecordRepository)(nil)
