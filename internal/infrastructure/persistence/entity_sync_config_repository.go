package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormEntitySyncConfigRepository implements SyncConfigRepository using GORM
type GormEntitySyncConfigRepository struct {
	db *gorm.DB
}

// NewGormEntitySyncConfigRepository creates a new GormEntitySyncConfigRepository
func NewGormEntitySyncConfigRepository(db *gorm.DB) *GormEntitySyncConfigRepository {
	return &GormEntitySyncConfigRepository{db: db}
}

// FindByEntityType returns the stored config, falling back to the default
// when the organization has not customized this type.
func (r *GormEntitySyncConfigRepository) FindByEntityType(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType) (*ledger.EntitySyncConfig, error) {
	var model models.EntitySyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ?", orgID, entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.DefaultEntitySyncConfig(orgID, entityType), nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByOrganization returns a config per supported entity type, stored
// rows layered over defaults.
func (r *GormEntitySyncConfigRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*ledger.EntitySyncConfig, error) {
	var configModels []models.EntitySyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Find(&configModels).Error; err != nil {
		return nil, err
	}

	stored := make(map[ledger.EntityType]*ledger.EntitySyncConfig, len(configModels))
	for _, model := range configModels {
		stored[model.EntityType] = model.ToDomain()
	}

	types := ledger.AllEntityTypes()
	configs := make([]*ledger.EntitySyncConfig, 0, len(types))
	for _, entityType := range types {
		if cfg, ok := stored[entityType]; ok {
			configs = append(configs, cfg)
			continue
		}
		configs = append(configs, ledger.DefaultEntitySyncConfig(orgID, entityType))
	}
	return configs, nil
}

// Save upserts the organization's config for one entity type
func (r *GormEntitySyncConfigRepository) Save(ctx context.Context, cfg *ledger.EntitySyncConfig) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EntitySyncConfigModel
		err := tx.
			Where("organization_id = ? AND entity_type = ?", cfg.OrganizationID, cfg.EntityType).
			First(&existing).Error
		switch {
		case err == nil:
			cfg.ID = existing.ID
			var model models.EntitySyncConfigModel
			model.FromDomain(cfg)
			return tx.Save(&model).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.EntitySyncConfigModel
			model.FromDomain(cfg)
			return tx.Create(&model).Error
		default:
			return err
		}
	})
}

// Ensure GormEntitySyncConfigRepository implements SyncConfigRepository
var _ ledger.SyncConfigRepository = (*GormEntitySyncConfigRepository)(nil)
