package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
)

// ConfigService manages an organization's sync configuration: dependency
// edges, per-entity settings, field mappings and the ledger connection.
type ConfigService struct {
	dependencies ledger.DependencyRepository
	configs      ledger.SyncConfigRepository
	fieldMaps    ledger.FieldMappingRepository
	connections  ledger.ConnectionRepository
	logger       *zap.Logger
}

// NewConfigService creates a new ConfigService
func NewConfigService(
	dependencies ledger.DependencyRepository,
	configs ledger.SyncConfigRepository,
	fieldMaps ledger.FieldMappingRepository,
	connections ledger.ConnectionRepository,
	logger *zap.Logger,
) *ConfigService {
	return &ConfigService{
		dependencies: dependencies,
		configs:      configs,
		fieldMaps:    fieldMaps,
		connections:  connections,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Dependency configuration
// ---------------------------------------------------------------------------

// GetDependencies returns the organization's dependency edges.
func (s *ConfigService) GetDependencies(ctx context.Context, orgID uuid.UUID) ([]ledger.EntityDependency, error) {
	return s.dependencies.ListByOrganization(ctx, orgID)
}

// ReplaceDependencies swaps the organization's dependency edges after
// rejecting configurations that contain a cycle.
func (s *ConfigService) ReplaceDependencies(ctx context.Context, orgID uuid.UUID, edges []ledger.EntityDependency) error {
	for i := range edges {
		if !edges[i].EntityType.IsValid() || !edges[i].DependsOn.IsValid() {
			return ledger.ErrInvalidEntityType
		}
		if edges[i].ID == uuid.Nil {
			edges[i].ID = uuid.New()
		}
		edges[i].OrganizationID = orgID
	}

	graph := ledger.NewDependencyGraph(edges)
	if _, err := graph.TopologicalOrder(); err != nil {
		return err
	}

	if err := s.dependencies.Replace(ctx, orgID, edges); err != nil {
		return err
	}
	s.logger.Info("Dependency configuration replaced",
		zap.String("organization_id", orgID.String()),
		zap.Int("edges", len(edges)))
	return nil
}

// ---------------------------------------------------------------------------
// Entity sync configuration
// ---------------------------------------------------------------------------

// GetEntityConfigs lists per-entity sync settings.
func (s *ConfigService) GetEntityConfigs(ctx context.Context, orgID uuid.UUID) ([]*ledger.EntitySyncConfig, error) {
	return s.configs.ListByOrganization(ctx, orgID)
}

// UpdateEntityConfig changes one entity type's sync settings.
func (s *ConfigService) UpdateEntityConfig(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, enabled bool, policy ledger.DirectionPolicy, pollInterval time.Duration) (*ledger.EntitySyncConfig, error) {
	if !entityType.IsValid() {
		return nil, ledger.ErrInvalidEntityType
	}
	if !policy.IsValid() {
		return nil, ledger.ErrInvalidDirection
	}

	cfg, err := s.configs.FindByEntityType(ctx, orgID, entityType)
	if err != nil {
		return nil, err
	}
	cfg.Enabled = enabled
	cfg.DirectionPolicy = policy
	cfg.PollInterval = pollInterval
	cfg.UpdatedAt = time.Now()

	if err := s.configs.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Field mappings
// ---------------------------------------------------------------------------

// GetFieldMappings lists the field mappings for one entity type.
func (s *ConfigService) GetFieldMappings(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType) ([]ledger.FieldMapping, error) {
	if !entityType.IsValid() {
		return nil, ledger.ErrInvalidEntityType
	}
	return s.fieldMaps.ListByEntityType(ctx, orgID, entityType)
}

// ReplaceFieldMappings swaps the field mappings for one entity type.
func (s *ConfigService) ReplaceFieldMappings(ctx context.Context, orgID uuid.UUID, entityType ledger.EntityType, mappings []ledger.FieldMapping) error {
	if !entityType.IsValid() {
		return ledger.ErrInvalidEntityType
	}
	now := time.Now()
	for i := range mappings {
		if mappings[i].Transform != "" && !mappings[i].Transform.IsValid() {
			return ledger.ErrLedgerValidation
		}
		if mappings[i].ID == uuid.Nil {
			mappings[i].ID = uuid.New()
			mappings[i].CreatedAt = now
		}
		mappings[i].OrganizationID = orgID
		mappings[i].EntityType = entityType
		mappings[i].UpdatedAt = now
	}
	return s.fieldMaps.Replace(ctx, orgID, entityType, mappings)
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

// GetConnection returns the organization's ledger connection.
func (s *ConfigService) GetConnection(ctx context.Context, orgID uuid.UUID) (*ledger.LedgerConnection, error) {
	return s.connections.FindByOrganization(ctx, orgID)
}

// UpdateConflictPolicy changes how the organization resolves two-sided
// edits.
func (s *ConfigService) UpdateConflictPolicy(ctx context.Context, orgID uuid.UUID, policy ledger.ConflictPolicy) error {
	if !policy.IsValid() {
		return ledger.ErrLedgerValidation
	}
	conn, err := s.connections.FindByOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	conn.ConflictPolicy = policy
	conn.UpdatedAt = time.Now()
	return s.connections.Update(ctx, conn)
}

// Disconnect revokes the organization's ledger connection.
func (s *ConfigService) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	conn, err := s.connections.FindByOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	now := time.Now()
	conn.Status = ledger.ConnectionStatusRevoked
	conn.UpdatedAt = now
	if err := s.connections.Update(ctx, conn); err != nil {
		return err
	}
	s.logger.Info("Ledger connection revoked", zap.String("organization_id", orgID.String()))
	return nil
}
