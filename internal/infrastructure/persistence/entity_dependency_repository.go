package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormEntityDependencyRepository implements DependencyRepository using GORM
type GormEntityDependencyRepository struct {
	db *gorm.DB
}

// NewGormEntityDependencyRepository creates a new GormEntityDependencyRepository
func NewGormEntityDependencyRepository(db *gorm.DB) *GormEntityDependencyRepository {
	return &GormEntityDependencyRepository{db: db}
}

// ListByOrganization returns the organization's configured edges, or the
// standard ledger ordering when none are stored.
func (r *GormEntityDependencyRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]ledger.EntityDependency, error) {
	var edgeModels []models.EntityDependencyModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("entity_type ASC, depends_on ASC").
		Find(&edgeModels).Error; err != nil {
		return nil, err
	}

	if len(edgeModels) == 0 {
		return ledger.DefaultDependencies(orgID), nil
	}

	edges := make([]ledger.EntityDependency, len(edgeModels))
	for i, model := range edgeModels {
		edges[i] = model.ToDomain()
	}
	return edges, nil
}

// Replace swaps the organization's edge set atomically
func (r *GormEntityDependencyRepository) Replace(ctx context.Context, orgID uuid.UUID, deps []ledger.EntityDependency) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Delete(&models.EntityDependencyModel{}, "organization_id = ?", orgID).Error; err != nil {
			return err
		}
		if len(deps) == 0 {
			return nil
		}

		now := time.Now()
		edgeModels := make([]models.EntityDependencyModel, len(deps))
		for i, dep := range deps {
			id := dep.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			edgeModels[i] = models.EntityDependencyModel{
				ID:             id,
				OrganizationID: orgID,
				EntityType:     dep.EntityType,
				DependsOn:      dep.DependsOn,
				IsRequired:     dep.IsRequired,
				CreatedAt:      now,
			}
		}
		return tx.Create(&edgeModels).Error
	})
}

// Ensure GormEntityDependencyRepository implements DependencyRepository
var _ ledger.DependencyRepository = (*GormEntityDependencyRepository)(nil)
