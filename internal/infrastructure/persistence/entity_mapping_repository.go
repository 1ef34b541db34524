package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormEntityMappingRepository implements MappingStore using GORM
type GormEntityMappingRepository struct {
	db *gorm.DB
}

// NewGormEntityMappingRepository creates a new GormEntityMappingRepository
func NewGormEntityMappingRepository(db *gorm.DB) *GormEntityMappingRepository {
	return &GormEntityMappingRepository{db: db}
}

// Save inserts or updates a mapping while preserving the local/remote
// bijection. A local id may only ever point at one remote id and vice
// versa; violating either direction returns ErrMappingConflict unless the
// caller passed MergePolicyOverwrite, which unlinks the conflicting rows
// and relinks the new pair in the same transaction.
func (r *GormEntityMappingRepository) Save(ctx context.Context, mapping *ledger.EntityMapping, policy ledger.MergePolicy) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var byLocal models.EntityMappingModel
		err := tx.
			Where("organization_id = ? AND entity_type = ? AND local_id = ?",
				mapping.OrganizationID, mapping.EntityType, mapping.LocalID).
			First(&byLocal).Error
		switch {
		case err == nil:
			if byLocal.RemoteID != mapping.RemoteID {
				if policy != ledger.MergePolicyOverwrite {
					return ledger.ErrMappingConflict
				}
				return r.relink(tx, mapping)
			}
			byLocal.RemoteRevision = mapping.RemoteRevision
			byLocal.LocalUpdatedAt = mapping.LocalUpdatedAt
			byLocal.RemoteUpdatedAt = mapping.RemoteUpdatedAt
			byLocal.LastSyncedAt = mapping.LastSyncedAt
			byLocal.UpdatedAt = mapping.UpdatedAt
			return tx.Save(&byLocal).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		// new local id: the remote id must not already be linked elsewhere
		var remoteCount int64
		if err := tx.
			Model(&models.EntityMappingModel{}).
			Where("organization_id = ? AND entity_type = ? AND remote_id = ?",
				mapping.OrganizationID, mapping.EntityType, mapping.RemoteID).
			Count(&remoteCount).Error; err != nil {
			return err
		}
		if remoteCount > 0 {
			if policy != ledger.MergePolicyOverwrite {
				return ledger.ErrMappingConflict
			}
			return r.relink(tx, mapping)
		}

		var model models.EntityMappingModel
		model.FromDomain(mapping)
		return tx.Create(&model).Error
	})
}

// relink drops every row binding the mapping's local or remote id and writes
// the new pair. Runs inside the Save transaction.
func (r *GormEntityMappingRepository) relink(tx *gorm.DB, mapping *ledger.EntityMapping) error {
	if err := tx.
		Where("organization_id = ? AND entity_type = ? AND (local_id = ? OR remote_id = ?)",
			mapping.OrganizationID, mapping.EntityType, mapping.LocalID, mapping.RemoteID).
		Delete(&models.EntityMappingModel{}).Error; err != nil {
		return err
	}
	var model models.EntityMappingModel
	model.FromDomain(mapping)
	return tx.Create(&model).Error
}

// FindByLocalID finds a mapping by its portal-side id
func (r *GormEntityMappingRepository) FindByLocalID(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) (*ledger.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND local_id = ?", orgID, entityType, localID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRemoteID finds a mapping by its ledger-side id
func (r *GormEntityMappingRepository) FindByRemoteID(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, remoteID string) (*ledger.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND remote_id = ?", orgID, entityType, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByType lists mappings of one entity type with the total count
func (r *GormEntityMappingRepository) ListByType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, limit, offset int) ([]*ledger.EntityMapping, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EntityMappingModel{}).
		Where("organization_id = ? AND entity_type = ?", orgID, entityType)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var mappingModels []models.EntityMappingModel
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Order("local_id ASC").Find(&mappingModels).Error; err != nil {
		return nil, 0, err
	}

	mappings := make([]*ledger.EntityMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = model.ToDomain()
	}
	return mappings, total, nil
}

// Delete removes a mapping by its portal-side id
func (r *GormEntityMappingRepository) Delete(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, localID string) error {
	result := r.db.WithContext(ctx).
		Delete(&models.EntityMappingModel{}, "organization_id = ? AND entity_type = ? AND local_id = ?", orgID, entityType, localID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrMappingNotFound
	}
	return nil
}

// Ensure GormEntityMappingRepository implements MappingStore
var _ ledger.MappingStore = (*GormEntityMappingRepository)(nil)
