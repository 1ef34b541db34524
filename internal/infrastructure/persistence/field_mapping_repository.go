package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormFieldMappingRepository implements FieldMappingRepository using GORM
type GormFieldMappingRepository struct {
	db *gorm.DB
}

// NewGormFieldMappingRepository creates a new GormFieldMappingRepository
func NewGormFieldMappingRepository(db *gorm.DB) *GormFieldMappingRepository {
	return &GormFieldMappingRepository{db: db}
}

// ListByEntityType lists the configured field mappings for one entity type
func (r *GormFieldMappingRepository) ListByEntityType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType) ([]ledger.FieldMapping, error) {
	var mappingModels []models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ?", orgID, entityType).
		Order("local_field ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]ledger.FieldMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = model.ToDomain()
	}
	return mappings, nil
}

// Replace swaps the mapping set for one entity type atomically
func (r *GormFieldMappingRepository) Replace(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, mappings []ledger.FieldMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Delete(&models.FieldMappingModel{}, "organization_id = ? AND entity_type = ?", orgID, entityType).Error; err != nil {
			return err
		}
		if len(mappings) == 0 {
			return nil
		}

		mappingModels := make([]models.FieldMappingModel, len(mappings))
		for i := range mappings {
			mappingModels[i].FromDomain(&mappings[i])
		}
		return tx.Create(&mappingModels).Error
	})
}

// Ensure GormFieldMappingRepository implements FieldMappingRepository
var _ ledger.FieldMappingRepository = (*GormFieldMappingRepository)(nil)
