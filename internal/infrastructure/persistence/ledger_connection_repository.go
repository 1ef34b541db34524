package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/persistence/models"
)

// GormLedgerConnectionRepository implements ConnectionRepository using GORM
type GormLedgerConnectionRepository struct {
	db *gorm.DB
}

// NewGormLedgerConnectionRepository creates a new GormLedgerConnectionRepository
func NewGormLedgerConnectionRepository(db *gorm.DB) *GormLedgerConnectionRepository {
	return &GormLedgerConnectionRepository{db: db}
}

// Save persists a new connection
func (r *GormLedgerConnectionRepository) Save(ctx context.Context, conn *ledger.LedgerConnection) error {
	var model models.LedgerConnectionModel
	model.FromDomain(conn)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByOrganization finds the organization's connection
func (r *GormLedgerConnectionRepository) FindByOrganization(ctx context.Context, orgID uuid.UUID) (*ledger.LedgerConnection, error) {
	var model models.LedgerConnectionModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrConnectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update persists token and status changes made on the aggregate
func (r *GormLedgerConnectionRepository) Update(ctx context.Context, conn *ledger.LedgerConnection) error {
	var model models.LedgerConnectionModel
	model.FromDomain(conn)
	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrConnectionNotFound
	}
	return nil
}

// ListConnectedOrganizations returns the ids of organizations whose
// connection is currently active. Used by the scheduler to decide which
// organizations get batch and poll cycles.
func (r *GormLedgerConnectionRepository) ListConnectedOrganizations(ctx context.Context) ([]uuid.UUID, error) {
	var orgIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LedgerConnectionModel{}).
		Where("status = ?", string(ledger.ConnectionStatusActive)).
		Pluck("organization_id", &orgIDs).Error
	if err != nil {
		return nil, err
	}
	return orgIDs, nil
}

// Ensure GormLedgerConnectionRepository implements ConnectionRepository
var _ ledger.ConnectionRepository = (*GormLedgerConnectionRepository)(nil)
