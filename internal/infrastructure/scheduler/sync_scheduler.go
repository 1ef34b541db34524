package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/batchly/backend/internal/domain/ledger"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobKind distinguishes the two kinds of scheduled work: draining the
// operation queue in dependency order, and polling the ledger change feed.
type SyncJobKind string

const (
	SyncJobKindBatch SyncJobKind = "BATCH"
	SyncJobKindPoll  SyncJobKind = "POLL"
)

// SyncJob is one unit of scheduled work for one organization
type SyncJob struct {
	OrganizationID uuid.UUID
	Kind           SyncJobKind
	EnqueuedAt     time.Time
}

// ---------------------------------------------------------------------------
// OrganizationSource
// ---------------------------------------------------------------------------

// OrganizationSource lists the organizations with a usable ledger
// connection, so the scheduler only spends cycles on organizations that can sync.
type OrganizationSource interface {
	ListConnectedOrganizations(ctx context.Context) ([]uuid.UUID, error)
}

// BatchRunner drains one organization's operation queue in dependency
// order, one batch per entity type that was ready and had work
type BatchRunner interface {
	RunOnce(ctx context.Context, orgID uuid.UUID) ([]*ledger.SyncBatch, error)
}

// ChangePoller pulls the ledger change feed for entity types whose poll
// interval has elapsed and enqueues pull operations for what it finds.
type ChangePoller interface {
	PollOnce(ctx context.Context, orgID uuid.UUID) (int, error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Workers is the number of concurrent job workers
	Workers int
	// BatchInterval is how often each organization's queue is drained
	BatchInterval time.Duration
	// PollInterval is how often the change-feed poller runs per organization.
	// Individual entity types poll on their own configured cadence inside
	// each run; this only bounds how often due work is noticed.
	PollInterval time.Duration
	// JobTimeout is the maximum time a single job can run
	JobTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:       true,
		Workers:       5,
		BatchInterval: 30 * time.Second,
		PollInterval:  time.Minute,
		JobTimeout:    10 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchInterval <= 0 || c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler drives the sync engine: on each tick it enumerates the
// connected organizations and fans batch and poll jobs out to a worker
// pool. One organization's slow ledger API never stalls the others beyond
// worker contention.
type SyncScheduler struct {
	config        SyncSchedulerConfig
	coordinator   BatchRunner
	poller        ChangePoller
	organizations OrganizationSource
	logger        *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(
	config SyncSchedulerConfig,
	coordinator BatchRunner,
	poller ChangePoller,
	organizations OrganizationSource,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:        config,
		coordinator:   coordinator,
		poller:        poller,
		organizations: organizations,
		logger:        logger,
		jobs:          make(chan *SyncJob, 256),
	}, nil
}

// Start starts the worker pool and the tick loops
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(2)
	go s.tickLoop(ctx, SyncJobKindBatch, s.config.BatchInterval)
	go s.tickLoop(ctx, SyncJobKindPoll, s.config.PollInterval)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("batch_interval", s.config.BatchInterval),
		zap.Duration("poll_interval", s.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution, used by the tick loops and by
// webhook ingestion when it wants an immediate drain.
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// TriggerBatch requests an immediate queue drain for one organization
func (s *SyncScheduler) TriggerBatch(orgID uuid.UUID) error {
	return s.SubmitJob(&SyncJob{
		OrganizationID: orgID,
		Kind:           SyncJobKindBatch,
		EnqueuedAt:     time.Now(),
	})
}

// tickLoop periodically fans one kind of job out to every connected organization
func (s *SyncScheduler) tickLoop(ctx context.Context, kind SyncJobKind, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fanOut(ctx, kind)
		}
	}
}

// fanOut enqueues one job per connected organization
func (s *SyncScheduler) fanOut(ctx context.Context, kind SyncJobKind) {
	orgIDs, err := s.organizations.ListConnectedOrganizations(ctx)
	if err != nil {
		s.logger.Error("Failed to list connected organizations",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}

	now := time.Now()
	for _, orgID := range orgIDs {
		job := &SyncJob{OrganizationID: orgID, Kind: kind, EnqueuedAt: now}
		select {
		case s.jobs <- job:
		default:
			s.logger.Warn("Sync job queue full, skipping organization this tick",
				zap.String("organization_id", orgID.String()),
				zap.String("kind", string(kind)),
			)
		}
	}
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job with a timeout
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	switch job.Kind {
	case SyncJobKindBatch:
		batches, err := s.coordinator.RunOnce(jobCtx, job.OrganizationID)
		if err != nil {
			s.logger.Error("Batch run failed",
				zap.Int("worker_id", workerID),
				zap.String("organization_id", job.OrganizationID.String()),
				zap.Error(err),
			)
			return
		}
		for _, batch := range batches {
			s.logger.Info("Batch run completed",
				zap.Int("worker_id", workerID),
				zap.String("organization_id", job.OrganizationID.String()),
				zap.String("batch_id", batch.ID.String()),
				zap.String("entity_type", string(batch.EntityType)),
				zap.String("status", string(batch.Status)),
				zap.Int("total", batch.TotalCount),
				zap.Int("succeeded", batch.SucceededCount),
				zap.Int("failed", batch.FailedCount),
			)
		}
	case SyncJobKindPoll:
		enqueued, err := s.poller.PollOnce(jobCtx, job.OrganizationID)
		if err != nil {
			s.logger.Error("Change-feed poll failed",
				zap.Int("worker_id", workerID),
				zap.String("organization_id", job.OrganizationID.String()),
				zap.Error(err),
			)
			return
		}
		if enqueued > 0 {
			s.logger.Info("Change-feed poll enqueued operations",
				zap.Int("worker_id", workerID),
				zap.String("organization_id", job.OrganizationID.String()),
				zap.Int("enqueued", enqueued),
			)
		}
	default:
		s.logger.Warn("Unknown sync job kind", zap.String("kind", string(job.Kind)))
	}
}
