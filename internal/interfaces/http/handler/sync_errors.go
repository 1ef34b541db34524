package handler

import (
	"strconv"

	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncErrorHandler handles error registry HTTP requests
type SyncErrorHandler struct {
	BaseHandler
	reportService *appsync.ReportService
}

// NewSyncErrorHandler creates a new SyncErrorHandler
func NewSyncErrorHandler(reportService *appsync.ReportService) *SyncErrorHandler {
	return &SyncErrorHandler{
		reportService: reportService,
	}
}

// ListErrors godoc
//
//	@Summary		List error registry entries
//	@Description	Returns aggregated sync failures, newest first. Resolved entries
//	@Description	are hidden unless include_resolved is set.
//	@Tags			sync
//	@ID				listSyncErrors
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			include_resolved	query		bool	false	"Include resolved entries (default: false)"
//	@Param			page				query		int		false	"Page number (default: 1)"
//	@Param			page_size			query		int		false	"Page size (default: 20, max: 100)"
//	@Success		200					{object}	APIResponse[[]ErrorEntryResponse]
//	@Router			/sync/errors [get]
func (h *SyncErrorHandler) ListErrors(c *gin.Context) {
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

	includeResolved, _ := strconv.ParseBool(c.DefaultQuery("include_resolved", "false"))

	entries, total, err := h.reportService.ListErrors(ctx, orgID, includeResolved, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]ErrorEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = toErrorEntryResponse(e)
	}

	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// GetErrorSummary godoc
//
//	@Summary		Get error summary
//	@Description	Returns unresolved error counts grouped by failure category
//	@Tags			sync
//	@ID				getSyncErrorSummary
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Success		200					{object}	APIResponse[ErrorSummaryResponse]
//	@Router			/sync/errors/summary [get]
func (h *SyncErrorHandler) GetErrorSummary(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	summary, err := h.reportService.ErrorSummary(ctx, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := ErrorSummaryResponse{Counts: make(map[string]int64, len(summary))}
	for category, count := range summary {
		response.Counts[category.String()] = count
	}

	h.Success(c, response)
}

// ResolveError godoc
//
//	@Summary		Resolve an error entry
//	@Description	Marks an error registry entry as resolved, dropping it from the default view
//	@Tags			sync
//	@ID				resolveSyncError
//	@Produce		json
//	@Param			X-Organization-ID	header	string	true	"Organization ID"
//	@Param			id					path	string	true	"Error entry ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/sync/errors/{id}/resolve [post]
func (h *SyncErrorHandler) ResolveError(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid error entry ID")
		return
	}

	if err := h.reportService.ResolveError(ctx, orgID, entryID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers all error registry routes
func (h *SyncErrorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	errs := rg.Group("/sync/errors")
	{
		errs.GET("", h.ListErrors)
		errs.GET("/summary", h.GetErrorSummary)
		errs.POST("/:id/resolve", h.ResolveError)
	}
}
