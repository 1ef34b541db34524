package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/batchly/backend/internal/domain/ledger"
)

// ReportService is the read side for operators: batch history, run history
// and the error registry.
type ReportService struct {
	batches  ledger.BatchRepository
	registry ledger.ErrorRegistry
}

// NewReportService creates a new ReportService
func NewReportService(batches ledger.BatchRepository, registry ledger.ErrorRegistry) *ReportService {
	return &ReportService{
		batches:  batches,
		registry: registry,
	}
}

// GetBatch returns one batch scoped to the organization.
func (s *ReportService) GetBatch(ctx context.Context, orgID, batchID uuid.UUID) (*ledger.SyncBatch, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.OrganizationID != orgID {
		return nil, ledger.ErrBatchNotFound
	}
	return batch, nil
}

// ListBatches pages through an organization's batch history.
func (s *ReportService) ListBatches(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ledger.SyncBatch, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.batches.ListByOrganization(ctx, orgID, limit, offset)
}

// ListRuns pages through run history, optionally scoped to one operation.
func (s *ReportService) ListRuns(ctx context.Context, orgID uuid.UUID, operationID *uuid.UUID, limit, offset int) ([]*ledger.SyncRun, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.batches.ListRuns(ctx, orgID, operationID, limit, offset)
}

// ListErrors pages through the error registry.
func (s *ReportService) ListErrors(ctx context.Context, orgID uuid.UUID, includeResolved bool, limit, offset int) ([]*ledger.ErrorEntry, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.registry.List(ctx, orgID, includeResolved, limit, offset)
}

// ResolveError marks one registry entry handled.
func (s *ReportService) ResolveError(ctx context.Context, orgID, entryID uuid.UUID) error {
	entry, err := s.registry.FindByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.OrganizationID != orgID {
		return ledger.ErrRegistryEntryNotFound
	}
	return s.registry.Resolve(ctx, entryID, time.Now())
}

// ErrorSummary reports unresolved failure counts per category.
func (s *ReportService) ErrorSummary(ctx context.Context, orgID uuid.UUID) (map[ledger.ErrorCategory]int64, error) {
	return s.registry.CountByCategory(ctx, orgID)
}
