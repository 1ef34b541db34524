// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQueueDepthProvider implements QueueDepthProvider using GORM.
// It queries the sync_operations table directly for aggregated counts so the
// metrics collector never touches the domain repositories.
type GormQueueDepthProvider struct {
	db *gorm.DB
}

// NewGormQueueDepthProvider creates a new GormQueueDepthProvider.
func NewGormQueueDepthProvider(db *gorm.DB) *GormQueueDepthProvider {
	return &GormQueueDepthProvider{db: db}
}

// GetQueueDepth returns outstanding operation counts per entity type for
// an organization. Outstanding covers everything not yet in a terminal state.
func (p *GormQueueDepthProvider) GetQueueDepth(ctx context.Context, orgID uuid.UUID) (map[string]int64, error) {
	type result struct {
		EntityType string `gorm:"column:entity_type"`
		Total      int64  `gorm:"column:total"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("sync_operations").
		Select("entity_type, COUNT(*) as total").
		Where("organization_id = ? AND status IN ?", orgID, []string{"PENDING", "SCHEDULED", "IN_PROGRESS"}).
		Group("entity_type").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.EntityType] = r.Total
	}

	return m, nil
}

// GormOrganizationProvider implements OrganizationProvider using GORM.
type GormOrganizationProvider struct {
	db *gorm.DB
}

// NewGormOrganizationProvider creates a new GormOrganizationProvider.
func NewGormOrganizationProvider(db *gorm.DB) *GormOrganizationProvider {
	return &GormOrganizationProvider{db: db}
}

// GetConnectedOrganizationIDs returns the organizations with an active
// ledger connection.
func (p *GormOrganizationProvider) GetConnectedOrganizationIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("ledger_connections").
		Select("organization_id").
		Where("status = ?", "ACTIVE").
		Find(&ids).Error

	return ids, err
}
