package handler

import (
	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncOperationHandler handles sync queue related HTTP requests
type SyncOperationHandler struct {
	BaseHandler
	queueService *appsync.QueueService
}

// NewSyncOperationHandler creates a new SyncOperationHandler
func NewSyncOperationHandler(queueService *appsync.QueueService) *SyncOperationHandler {
	return &SyncOperationHandler{
		queueService: queueService,
	}
}

// Enqueue godoc
//
//	@Summary		Enqueue a sync operation
//	@Description	Queues an entity change for synchronization. Enqueuing is idempotent:
//	@Description	a duplicate of an outstanding operation returns the existing one.
//	@Tags			sync
//	@ID				enqueueSyncOperation
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header		string						true	"Organization ID"
//	@Param			request				body		EnqueueOperationRequest		true	"Operation to enqueue"
//	@Success		200					{object}	APIResponse[EnqueueOperationResponse]
//	@Success		201					{object}	APIResponse[EnqueueOperationResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Failure		422					{object}	ErrorResponse
//	@Router			/sync/operations [post]
func (h *SyncOperationHandler) Enqueue(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req EnqueueOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entityType := ledger.EntityType(req.EntityType)
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown entity type: "+req.EntityType)
		return
	}

	priority := ledger.PriorityManual
	if req.Priority != nil {
		priority = *req.Priority
	}

	result, err := h.queueService.Enqueue(ctx, appsync.EnqueueRequest{
		OrganizationID: orgID,
		EntityType:     entityType,
		EntityID:       req.EntityID,
		Kind:           ledger.OperationKind(req.Kind),
		Direction:      ledger.SyncDirection(req.Direction),
		Payload:        req.Payload,
		Priority:       priority,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := EnqueueOperationResponse{
		Operation:    toSyncOperationResponse(result.Operation),
		Deduplicated: result.Deduplicated,
	}
	if result.Deduplicated {
		h.Success(c, response)
		return
	}
	h.Created(c, response)
}

// ListOperations godoc
//
//	@Summary		List sync operations
//	@Description	Returns a paginated list of sync operations with optional filtering
//	@Tags			sync
//	@ID				listSyncOperations
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			entity_type			query		string	false	"Filter by entity type"
//	@Param			status				query		string	false	"Filter by operation status"
//	@Param			direction			query		string	false	"Filter by sync direction (PUSH, PULL)"
//	@Param			batch_id			query		string	false	"Filter by batch ID"
//	@Param			sort_by				query		string	false	"Sort field (default: created_at)"
//	@Param			sort_order			query		string	false	"Sort direction ASC or DESC (default: DESC)"
//	@Param			page				query		int		false	"Page number (default: 1)"
//	@Param			page_size			query		int		false	"Page size (default: 20, max: 100)"
//	@Success		200					{object}	APIResponse[[]SyncOperationResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/sync/operations [get]
func (h *SyncOperationHandler) ListOperations(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req ListOperationsRequest
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

	filter := ledger.OperationFilter{
		OrganizationID: &orgID,
		SortBy:         req.SortBy,
		SortDir:        req.SortOrder,
		Limit:          req.PageSize,
		Offset:         (req.Page - 1) * req.PageSize,
	}

	if req.EntityType != "" {
		entityType := ledger.EntityType(req.EntityType)
		if !entityType.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown entity type: "+req.EntityType)
			return
		}
		filter.EntityType = &entityType
	}
	if req.Status != "" {
		status := ledger.OperationStatus(req.Status)
		if !status.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown operation status: "+req.Status)
			return
		}
		filter.Status = &status
	}
	if req.Direction != "" {
		direction := ledger.SyncDirection(req.Direction)
		if !direction.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown sync direction: "+req.Direction)
			return
		}
		filter.Direction = &direction
	}
	if req.BatchID != "" {
		batchID, err := uuid.Parse(req.BatchID)
		if err != nil {
			h.BadRequest(c, "Invalid batch ID")
			return
		}
		filter.BatchID = &batchID
	}

	operations, total, err := h.queueService.ListOperations(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toSyncOperationResponses(operations), total, req.Page, req.PageSize)
}

// GetOperation godoc
//
//	@Summary		Get a sync operation
//	@Description	Returns a single sync operation by ID
//	@Tags			sync
//	@ID				getSyncOperation
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			id					path		string	true	"Operation ID"
//	@Success		200					{object}	APIResponse[SyncOperationResponse]
//	@Failure		404					{object}	ErrorResponse
//	@Router			/sync/operations/{id} [get]
func (h *SyncOperationHandler) GetOperation(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid operation ID")
		return
	}

	operation, err := h.queueService.GetOperation(ctx, orgID, operationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncOperationResponse(operation))
}

// CancelOperation godoc
//
//	@Summary		Cancel a sync operation
//	@Description	Cancels a pending or scheduled operation before a worker claims it
//	@Tags			sync
//	@ID				cancelSyncOperation
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			id					path		string	true	"Operation ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/sync/operations/{id}/cancel [post]
func (h *SyncOperationHandler) CancelOperation(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid operation ID")
		return
	}

	if err := h.queueService.Cancel(ctx, orgID, operationID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RetryOperation godoc
//
//	@Summary		Retry a dead sync operation
//	@Description	Revives a dead-lettered operation and puts it back on the queue
//	@Tags			sync
//	@ID				retrySyncOperation
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			id					path		string	true	"Operation ID"
//	@Success		200	{object}	APIResponse[SyncOperationResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/sync/operations/{id}/retry [post]
func (h *SyncOperationHandler) RetryOperation(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	operationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid operation ID")
		return
	}

	operation, err := h.queueService.RetryDead(ctx, orgID, operationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncOperationResponse(operation))
}

// ListDeadOperations godoc
//
//	@Summary		List dead sync operations
//	@Description	Returns operations whose retry budget is exhausted
//	@Tags			sync
//	@ID				listDeadSyncOperations
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			page				query		int		false	"Page number (default: 1)"
//	@Param			page_size			query		int		false	"Page size (default: 20, max: 100)"
//	@Success		200					{object}	APIResponse[[]SyncOperationResponse]
//	@Router			/sync/operations/dead [get]
func (h *SyncOperationHandler) ListDeadOperations(c *gin.Context) {
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

	operations, total, err := h.queueService.ListDead(ctx, orgID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toSyncOperationResponses(operations), total, req.Page, req.PageSize)
}

// GetQueueDepth godoc
//
//	@Summary		Get queue depth
//	@Description	Returns outstanding operation counts per entity type
//	@Tags			sync
//	@ID				getSyncQueueDepth
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Success		200					{object}	APIResponse[QueueDepthResponse]
//	@Router			/sync/operations/depth [get]
func (h *SyncOperationHandler) GetQueueDepth(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	depth, err := h.queueService.QueueDepth(ctx, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := QueueDepthResponse{Depth: make(map[string]int64, len(depth))}
	for entityType, count := range depth {
		response.Depth[entityType.String()] = count
	}

	h.Success(c, response)
}

// RegisterRoutes registers all sync operation routes
func (h *SyncOperationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	operations := rg.Group("/sync/operations")
	{
		operations.POST("", h.Enqueue)
		operations.GET("", h.ListOperations)
		operations.GET("/dead", h.ListDeadOperations)
		operations.GET("/depth", h.GetQueueDepth)
		operations.GET("/:id", h.GetOperation)
		operations.POST("/:id/cancel", h.CancelOperation)
		operations.POST("/:id/retry", h.RetryOperation)
	}
}
