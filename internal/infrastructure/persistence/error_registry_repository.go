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

// GormErrorRegistryRepository implements ErrorRegistry using GORM
type GormErrorRegistryRepository struct {
	db *gorm.DB
}

// NewGormErrorRegistryRepository creates a new GormErrorRegistryRepository
func NewGormErrorRegistryRepository(db *gorm.DB) *GormErrorRegistryRepository {
	return &GormErrorRegistryRepository{db: db}
}

// Record upserts by (organization, entity type, category, fingerprint).
// A recurring failure bumps the occurrence counter and reopens the entry
// when it had been resolved.
func (r *GormErrorRegistryRepository) Record(ctx context.Context, entry *ledger.ErrorEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ErrorEntryModel
		err := tx.
			Where("organization_id = ? AND entity_type = ? AND category = ? AND fingerprint = ?",
				entry.OrganizationID, entry.EntityType, entry.Category, entry.Fingerprint).
			First(&existing).Error
		switch {
		case err == nil:
			return tx.
				Model(&models.ErrorEntryModel{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"occurrences":  gorm.Expr("occurrences + 1"),
					"message":      entry.Message,
					"last_seen_at": entry.LastSeenAt,
					"resolved":     false,
					"resolved_at":  nil,
				}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.ErrorEntryModel
			model.FromDomain(entry)
			return tx.Create(&model).Error
		default:
			return err
		}
	})
}

// FindByID finds a registry entry by its ID
func (r *GormErrorRegistryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.ErrorEntry, error) {
	var model models.ErrorEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrRegistryEntryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns registry entries newest-seen first with the total count
func (r *GormErrorRegistryRepository) List(ctx context.Context, orgID uuid.UUID, includeResolved bool, limit, offset int) ([]*ledger.ErrorEntry, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ErrorEntryModel{}).
		Where("organization_id = ?", orgID)
	if !includeResolved {
		query = query.Where("resolved = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entryModels []models.ErrorEntryModel
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Order("last_seen_at DESC").Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*ledger.ErrorEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = model.ToDomain()
	}
	return entries, total, nil
}

// Resolve marks an entry as acknowledged by an operator
func (r *GormErrorRegistryRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ErrorEntryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrRegistryEntryNotFound
	}
	return nil
}

// CountByCategory summarizes unresolved failures per category
func (r *GormErrorRegistryRepository) CountByCategory(ctx context.Context, orgID uuid.UUID) (map[ledger.ErrorCategory]int64, error) {
	type row struct {
		Category ledger.ErrorCategory
		Total    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.ErrorEntryModel{}).
		Select("category, SUM(occurrences) AS total").
		Where("organization_id = ? AND resolved = ?", orgID, false).
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[ledger.ErrorCategory]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Total
	}
	return counts, nil
}

// Ensure GormErrorRegistryRepository implements ErrorRegistry
var _ ledger.ErrorRegistry = (*GormErrorRegistryRepository)(nil)
