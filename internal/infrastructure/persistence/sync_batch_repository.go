package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormSyncBatchRepository implements BatchRepository using GORM
type GormSyncBatchRepository struct {
	db *gorm.DB
}

// NewGormSyncBatchRepository creates a new GormSyncBatchRepository
func NewGormSyncBatchRepository(db *gorm.DB) *GormSyncBatchRepository {
	return &GormSyncBatchRepository{db: db}
}

// Create persists a new batch
func (r *GormSyncBatchRepository) Create(ctx context.Context, batch *ledger.SyncBatch) error {
	var model models.SyncBatchModel
	model.FromDomain(batch)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists counter and status changes made on the aggregate
func (r *GormSyncBatchRepository) Update(ctx context.Context, batch *ledger.SyncBatch) error {
	var model models.SyncBatchModel
	model.FromDomain(batch)
	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrBatchNotFound
	}
	return nil
}

// FindByID finds a batch by its ID
func (r *GormSyncBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.SyncBatch, error) {
	var model models.SyncBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrBatchNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByOrganization lists batches newest first with the total count
func (r *GormSyncBatchRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncBatch, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncBatchModel{}).
		Where("organization_id = ?", orgID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batchModels []models.SyncBatchModel
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Order("started_at DESC").Find(&batchModels).Error; err != nil {
		return nil, 0, err
	}

	batches := make([]*ledger.SyncBatch, len(batchModels))
	for i, model := range batchModels {
		batches[i] = model.ToDomain()
	}
	return batches, total, nil
}

// RecordRun appends an attempt to the sync history
func (r *GormSyncBatchRepository) RecordRun(ctx context.Context, run *ledger.SyncRun) error {
	var model models.SyncRunModel
	model.FromDomain(run)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListRuns lists history rows, optionally narrowed to one operation
func (r *GormSyncBatchRepository) ListRuns(ctx context.Context, orgID uuid.UUID, operationID *uuid.UUID, limit, offset int) ([]*ledger.SyncRun, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("organization_id = ?", orgID)
	if operationID != nil {
		query = query.Where("operation_id = ?", *operationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runModels []models.SyncRunModel
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Order("ran_at DESC").Find(&runModels).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]*ledger.SyncRun, len(runModels))
	for i, model := range runModels {
		runs[i] = model.ToDomain()
	}
	return runs, total, nil
}

// Ensure GormSyncBatchRepository implements BatchRepository
var _ ledger.BatchRepository = (*GormSyncBatchRepository)(nil)
