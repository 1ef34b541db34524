package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormSyncOperationRepository implements OperationRepository using GORM
type GormSyncOperationRepository struct {
	db *gorm.DB
}

// NewGormSyncOperationRepository creates a new GormSyncOperationRepository
func NewGormSyncOperationRepository(db *gorm.DB) *GormSyncOperationRepository {
	return &GormSyncOperationRepository{db: db}
}

// outstandingStatuses are the states that count as "already queued" for
// idempotent enqueue and for the coordinator's readiness snapshot.
var outstandingStatuses = []ledger.OperationStatus{
	ledger.OperationStatusPending,
	ledger.OperationStatusScheduled,
	ledger.OperationStatusInProgress,
}

// claimableStatuses are the states DequeueReady may claim from.
var claimableStatuses = []ledger.OperationStatus{
	ledger.OperationStatusPending,
	ledger.OperationStatusScheduled,
}

// Enqueue persists a new operation, collapsing onto an outstanding duplicate
func (r *GormSyncOperationRepository) Enqueue(ctx context.Context, op *ledger.SyncOperation) (*ledger.SyncOperation, error) {
	var result *ledger.SyncOperation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SyncOperationModel
		err := tx.
			Where("organization_id = ? AND idempotency_key = ? AND status IN ?",
				op.OrganizationID, op.IdempotencyKey, outstandingStatuses).
			First(&existing).Error
		if err == nil {
			result = existing.ToDomain()
			return ledger.ErrDuplicateOperation
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var model models.SyncOperationModel
		model.FromDomain(op)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		result = op
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateOperation) {
		return result, err
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DequeueReady claims up to limit due operations of one entity type for the
// organization. Selection and claim are separate statements: the conditional
// update only wins when the row is still in the state it was selected in AND
// no other operation for the same entity id went in-progress in the
// meantime, so racing workers can never hold two claims on one entity.
func (r *GormSyncOperationRepository) DequeueReady(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, now time.Time, limit int) ([]*ledger.SyncOperation, error) {
	var candidates []models.SyncOperationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND status IN ? AND scheduled_at <= ?",
			orgID, entityType, claimableStatuses, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM sync_operations busy
			WHERE busy.organization_id = sync_operations.organization_id
			  AND busy.entity_type = sync_operations.entity_type
			  AND busy.entity_id = sync_operations.entity_id
			  AND busy.status = ?
		)`, ledger.OperationStatusInProgress).
		Order("priority ASC, scheduled_at ASC, created_at ASC").
		Limit(limit).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	claimed := make([]*ledger.SyncOperation, 0, len(candidates))
	claimedEntities := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		// one claim per entity id per pass, even when the queue holds
		// several due operations for it
		if _, dup := claimedEntities[candidate.EntityID]; dup {
			continue
		}

		res := r.db.WithContext(ctx).
			Model(&models.SyncOperationModel{}).
			Where("id = ? AND status = ?", candidate.ID, candidate.Status).
			Where(`NOT EXISTS (
				SELECT 1 FROM sync_operations busy
				WHERE busy.organization_id = ?
				  AND busy.entity_type = ?
				  AND busy.entity_id = ?
				  AND busy.status = ?
				  AND busy.id <> ?
			)`, orgID, entityType, candidate.EntityID, ledger.OperationStatusInProgress, candidate.ID).
			Updates(map[string]any{
				"status":     ledger.OperationStatusInProgress,
				"started_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race to another worker
			continue
		}
		claimedEntities[candidate.EntityID] = struct{}{}

		op := candidate.ToDomain()
		op.Status = ledger.OperationStatusInProgress
		startedAt := now
		op.StartedAt = &startedAt
		op.UpdatedAt = now
		claimed = append(claimed, op)
	}
	return claimed, nil
}

// Update persists lifecycle transitions made on the aggregate
func (r *GormSyncOperationRepository) Update(ctx context.Context, op *ledger.SyncOperation) error {
	var model models.SyncOperationModel
	model.FromDomain(op)
	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrOperationNotFound
	}
	return nil
}

// FindByID finds an operation by its ID
func (r *GormSyncOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.SyncOperation, error) {
	var model models.SyncOperationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrOperationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds the outstanding operation with the given key
func (r *GormSyncOperationRepository) FindByIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string) (*ledger.SyncOperation, error) {
	var model models.SyncOperationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND idempotency_key = ? AND status IN ?", orgID, key, outstandingStatuses).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrOperationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns operations matching the filter along with the total count
func (r *GormSyncOperationRepository) List(ctx context.Context, filter ledger.OperationFilter) ([]*ledger.SyncOperation, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncOperationModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var operationModels []models.SyncOperationModel
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	sortField := ValidateSortField(filter.SortBy, SyncOperationSortFields, "created_at")
	sortDir := ValidateSortOrder(filter.SortDir)
	if err := query.Order(sortField + " " + sortDir).Find(&operationModels).Error; err != nil {
		return nil, 0, err
	}

	operations := make([]*ledger.SyncOperation, len(operationModels))
	for i, model := range operationModels {
		operations[i] = model.ToDomain()
	}
	return operations, total, nil
}

// CountOutstanding reports queue depth per entity type for an organization
func (r *GormSyncOperationRepository) CountOutstanding(ctx context.Context, orgID uuid.UUID) (map[ledger.EntityType]int64, error) {
	type row struct {
		EntityType ledger.EntityType
		Total      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.SyncOperationModel{}).
		Select("entity_type, COUNT(*) AS total").
		Where("organization_id = ? AND status IN ?", orgID, outstandingStatuses).
		Group("entity_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[ledger.EntityType]int64, len(rows))
	for _, r := range rows {
		counts[r.EntityType] = r.Total
	}
	return counts, nil
}

// ListDead returns dead-lettered operations for operator review
func (r *GormSyncOperationRepository) ListDead(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncOperation, int64, error) {
	dead := ledger.OperationStatusDead
	return r.List(ctx, ledger.OperationFilter{
		OrganizationID: &orgID,
		Status:         &dead,
		Limit:          limit,
		Offset:         offset,
	})
}

// applyFilter applies filter options to the query
func (r *GormSyncOperationRepository) applyFilter(query *gorm.DB, filter ledger.OperationFilter) *gorm.DB {
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.EntityType != nil && filter.EntityType.IsValid() {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Status != nil && filter.Status.IsValid() {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil && filter.Direction.IsValid() {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	return query
}

// Ensure GormSyncOperationRepository implements OperationRepository
var _ ledger.OperationRepository = (*GormSyncOperationRepository)(nil)
