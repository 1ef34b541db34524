package handler

import (
	"net/http"

	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BatchTrigger requests an immediate batch run for one organization.
// The scheduler implements this; the handler never blocks on the run itself.
type BatchTrigger interface {
	TriggerBatch(orgID uuid.UUID) error
}

// SyncBatchHandler handles batch reporting and run-now HTTP requests
type SyncBatchHandler struct {
	BaseHandler
	reportService *appsync.ReportService
	trigger       BatchTrigger
}

// NewSyncBatchHandler creates a new SyncBatchHandler
func NewSyncBatchHandler(reportService *appsync.ReportService, trigger BatchTrigger) *SyncBatchHandler {
	return &SyncBatchHandler{
		reportService: reportService,
		trigger:       trigger,
	}
}

// ListBatches godoc
//
//	@Summary		List sync batches
//	@Description	Returns a paginated list of sync batches, newest first
//	@Tags			sync
//	@ID				listSyncBatches
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			page				query		int		false	"Page number (default: 1)"
//	@Param			page_size			query		int		false	"Page size (default: 20, max: 100)"
//	@Success		200					{object}	APIResponse[[]SyncBatchResponse]
//	@Router			/sync/batches [get]
func (h *SyncBatchHandler) ListBatches(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid request parameters: "+err.Error())
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	batches, total, err := h.reportService.ListBatches(ctx, orgID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]SyncBatchResponse, len(batches))
	for i, b := range batches {
		responses[i] = toSyncBatchResponse(b)
	}

	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// GetBatch godoc
//
//	@Summary		Get a sync batch
//	@Description	Returns a single sync batch with its outcome counters
//	@Tags			sync
//	@ID				getSyncBatch
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			id					path		string	true	"Batch ID"
//	@Success		200					{object}	APIResponse[SyncBatchResponse]
//	@Failure		404					{object}	ErrorResponse
//	@Router			/sync/batches/{id} [get]
func (h *SyncBatchHandler) GetBatch(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	batch, err := h.reportService.GetBatch(ctx, orgID, batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncBatchResponse(batch))
}

// ListRuns godoc
//
//	@Summary		List execution runs
//	@Description	Returns per-attempt execution records, optionally filtered by operation
//	@Tags			sync
//	@ID				listSyncRuns
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			operation_id		query		string	false	"Filter by operation ID"
//	@Param			page				query		int		false	"Page number (default: 1)"
//	@Param			page_size			query		int		false	"Page size (default: 20, max: 100)"
//	@Success		200					{object}	APIResponse[[]SyncRunResponse]
//	@Router			/sync/runs [get]
func (h *SyncBatchHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid request parameters: "+err.Error())
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	var operationID *uuid.UUID
	if idStr := c.Query("operation_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			h.BadRequest(c, "Invalid operation ID")
			return
		}
		operationID = &id
	}

	runs, total, err := h.reportService.ListRuns(ctx, orgID, operationID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]SyncRunResponse, len(runs))
	for i, r := range runs {
		responses[i] = toSyncRunResponse(r)
	}

	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// RunNow godoc
//
//	@Summary		Trigger a batch run
//	@Description	Asks the scheduler to run a sync batch for the organization as soon
//	@Description	as a worker is free. Returns 202 without waiting for the run.
//	@Tags			sync
//	@ID				runSyncNow
//	@Produce		json
//	@Param			X-Organization-ID	header	string	true	"Organization ID"
//	@Success		202
//	@Failure		503	{object}	ErrorResponse
//	@Router			/sync/run [post]
func (h *SyncBatchHandler) RunNow(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Sync scheduler is disabled")
		return
	}

	if err := h.trigger.TriggerBatch(orgID); err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Sync scheduler is not accepting work: "+err.Error())
		return
	}

	c.Status(http.StatusAccepted)
}

// RegisterRoutes registers all batch reporting routes
func (h *SyncBatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.GET("/batches", h.ListBatches)
		sync.GET("/batches/:id", h.GetBatch)
		sync.GET("/runs", h.ListRuns)
		sync.POST("/run", h.RunNow)
	}
}
