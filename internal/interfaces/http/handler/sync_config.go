package handler

import (
	"time"

	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SyncConfigHandler handles sync configuration HTTP requests
type SyncConfigHandler struct {
	BaseHandler
	configService *appsync.ConfigService
}

// NewSyncConfigHandler creates a new SyncConfigHandler
func NewSyncConfigHandler(configService *appsync.ConfigService) *SyncConfigHandler {
	return &SyncConfigHandler{
		configService: configService,
	}
}

// parseEntityTypeParam reads and validates the :type path parameter
func (h *SyncConfigHandler) parseEntityTypeParam(c *gin.Context) (ledger.EntityType, bool) {
	entityType := ledger.EntityType(c.Param("type"))
	if !entityType.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown entity type: "+c.Param("type"))
		return "", false
	}
	return entityType, true
}

// GetDependencies godoc
//
//	@Summary		Get dependency edges
//	@Description	Returns the organization's entity dependency graph
//	@Tags			sync
//	@ID				getSyncDependencies
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Success		200					{object}	APIResponse[[]DependencyEdgeResponse]
//	@Router			/sync/config/dependencies [get]
func (h *SyncConfigHandler) GetDependencies(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	edges, err := h.configService.GetDependencies(ctx, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDependencyEdgeResponses(edges))
}

// ReplaceDependencies godoc
//
//	@Summary		Replace dependency edges
//	@Description	Replaces the organization's dependency graph. Rejected if the new
//	@Description	edge set contains a cycle.
//	@Tags			sync
//	@ID				replaceSyncDependencies
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header		string						true	"Organization ID"
//	@Param			request				body		ReplaceDependenciesRequest	true	"New dependency edges"
//	@Success		200					{object}	APIResponse[[]DependencyEdgeResponse]
//	@Failure		422					{object}	ErrorResponse
//	@Router			/sync/config/dependencies [put]
func (h *SyncConfigHandler) ReplaceDependencies(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req ReplaceDependenciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	edges := make([]ledger.EntityDependency, len(req.Edges))
	for i, e := range req.Edges {
		entityType := ledger.EntityType(e.EntityType)
		dependsOn := ledger.EntityType(e.DependsOn)
		if !entityType.IsValid() || !dependsOn.IsValid() {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Unknown entity type in edge")
			return
		}
		// edges are required unless the caller says otherwise
		required := true
		if e.IsRequired != nil {
			required = *e.IsRequired
		}
		edges[i] = ledger.EntityDependency{
			OrganizationID: orgID,
			EntityType:     entityType,
			DependsOn:      dependsOn,
			IsRequired:     required,
		}
	}

	if err := h.configService.ReplaceDependencies(ctx, orgID, edges); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDependencyEdgeResponses(edges))
}

// GetEntityConfigs godoc
//
//	@Summary		List entity sync configurations
//	@Description	Returns per-type sync settings for the organization
//	@Tags			sync
//	@ID				getSyncEntityConfigs
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Success		200					{object}	APIResponse[[]EntitySyncConfigResponse]
//	@Router			/sync/config/entities [get]
func (h *SyncConfigHandler) GetEntityConfigs(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	configs, err := h.configService.GetEntityConfigs(ctx, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]EntitySyncConfigResponse, len(configs))
	for i, cfg := range configs {
		responses[i] = toEntitySyncConfigResponse(cfg)
	}

	h.Success(c, responses)
}

// UpdateEntityConfig godoc
//
//	@Summary		Update an entity sync configuration
//	@Description	Updates enabled flag, direction policy and poll interval for one entity type
//	@Tags			sync
//	@ID				updateSyncEntityConfig
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header		string						true	"Organization ID"
//	@Param			type				path		string						true	"Entity type"
//	@Param			request				body		UpdateEntityConfigRequest	true	"New settings"
//	@Success		200					{object}	APIResponse[EntitySyncConfigResponse]
//	@Failure		400					{object}	ErrorResponse
//	@Router			/sync/config/entities/{type} [put]
func (h *SyncConfigHandler) UpdateEntityConfig(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	entityType, ok := h.parseEntityTypeParam(c)
	if !ok {
		return
	}

	var req UpdateEntityConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cfg, err := h.configService.UpdateEntityConfig(
		ctx,
		orgID,
		entityType,
		req.Enabled,
		ledger.DirectionPolicy(req.DirectionPolicy),
		time.Duration(req.PollIntervalSeconds)*time.Second,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toEntitySyncConfigResponse(cfg))
}

// GetFieldMappings godoc
//
//	@Summary		Get field mappings
//	@Description	Returns field mappings for one entity type
//	@Tags			sync
//	@ID				getSyncFieldMappings
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Param			type				path		string	true	"Entity type"
//	@Success		200					{object}	APIResponse[[]FieldMappingResponse]
//	@Router			/sync/config/entities/{type}/mappings [get]
func (h *SyncConfigHandler) GetFieldMappings(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	entityType, ok := h.parseEntityTypeParam(c)
	if !ok {
		return
	}

	mappings, err := h.configService.GetFieldMappings(ctx, orgID, entityType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]FieldMappingResponse, len(mappings))
	for i, m := range mappings {
		responses[i] = toFieldMappingResponse(m)
	}

	h.Success(c, responses)
}

// ReplaceFieldMappings godoc
//
//	@Summary		Replace field mappings
//	@Description	Replaces all field mappings for one entity type
//	@Tags			sync
//	@ID				replaceSyncFieldMappings
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header		string						true	"Organization ID"
//	@Param			type				path		string						true	"Entity type"
//	@Param			request				body		ReplaceFieldMappingsRequest	true	"New mappings"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Router			/sync/config/entities/{type}/mappings [put]
func (h *SyncConfigHandler) ReplaceFieldMappings(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	entityType, ok := h.parseEntityTypeParam(c)
	if !ok {
		return
	}

	var req ReplaceFieldMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	mappings := make([]ledger.FieldMapping, len(req.Mappings))
	for i, m := range req.Mappings {
		transform := ledger.TransformType(m.Transform)
		if m.Transform == "" {
			transform = ledger.TransformNone
		}
		mappings[i] = ledger.FieldMapping{
			OrganizationID: orgID,
			EntityType:     entityType,
			LocalField:     m.LocalField,
			RemoteField:    m.RemoteField,
			Transform:      transform,
			TransformArg:   m.TransformArg,
			Required:       m.Required,
		}
	}

	if err := h.configService.ReplaceFieldMappings(ctx, orgID, entityType, mappings); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetConnection godoc
//
//	@Summary		Get the ledger connection
//	@Description	Returns the organization's ledger connection. Tokens are never included.
//	@Tags			sync
//	@ID				getLedgerConnection
//	@Produce		json
//	@Param			X-Organization-ID	header		string	true	"Organization ID"
//	@Success		200					{object}	APIResponse[ConnectionResponse]
//	@Failure		404					{object}	ErrorResponse
//	@Router			/sync/config/connection [get]
func (h *SyncConfigHandler) GetConnection(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	conn, err := h.configService.GetConnection(ctx, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConnectionResponse(conn))
}

// UpdateConflictPolicy godoc
//
//	@Summary		Update the conflict policy
//	@Description	Changes how both-sides-changed conflicts are resolved for the organization
//	@Tags			sync
//	@ID				updateConflictPolicy
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header	string							true	"Organization ID"
//	@Param			request				body	UpdateConflictPolicyRequest		true	"New policy"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/sync/config/connection/conflict-policy [put]
func (h *SyncConfigHandler) UpdateConflictPolicy(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	var req UpdateConflictPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.configService.UpdateConflictPolicy(ctx, orgID, ledger.ConflictPolicy(req.Policy)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Disconnect godoc
//
//	@Summary		Disconnect from the ledger
//	@Description	Revokes the organization's ledger connection. Queued operations stay
//	@Description	put and resume when the organization reconnects.
//	@Tags			sync
//	@ID				disconnectLedger
//	@Produce		json
//	@Param			X-Organization-ID	header	string	true	"Organization ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/sync/config/connection [delete]
func (h *SyncConfigHandler) Disconnect(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	if err := h.configService.Disconnect(ctx, orgID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers all sync configuration routes
func (h *SyncConfigHandler) RegisterRoutes(rg *gin.RouterGroup) {
	config := rg.Group("/sync/config")
	{
		config.GET("/dependencies", h.GetDependencies)
		config.PUT("/dependencies", h.ReplaceDependencies)
		config.GET("/entities", h.GetEntityConfigs)
		config.PUT("/entities/:type", h.UpdateEntityConfig)
		config.GET("/entities/:type/mappings", h.GetFieldMappings)
		config.PUT("/entities/:type/mappings", h.ReplaceFieldMappings)
		config.GET("/connection", h.GetConnection)
		config.PUT("/connection/conflict-policy", h.UpdateConflictPolicy)
		config.DELETE("/connection", h.Disconnect)
	}
}
