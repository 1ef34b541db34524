package handler

import (
	"errors"
	"io"

	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the HMAC signature of the webhook body
const SignatureHeader = "X-Ledger-Signature"

// WebhookHandler handles inbound ledger webhook deliveries
type WebhookHandler struct {
	BaseHandler
	webhookService *appsync.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *appsync.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// Receive godoc
//
//	@Summary		Receive a ledger webhook
//	@Description	Verifies the HMAC signature and enqueues high-priority pull
//	@Description	operations for the entities the delivery names. Duplicate events
//	@Description	are acknowledged without re-enqueueing.
//	@Tags			webhooks
//	@ID				receiveLedgerWebhook
//	@Accept			json
//	@Produce		json
//	@Param			X-Ledger-Signature	header		string	true	"HMAC-SHA256 signature of the request body"
//	@Success		200					{object}	APIResponse[appsync.IngestResult]
//	@Failure		400					{object}	ErrorResponse
//	@Failure		401					{object}	ErrorResponse
//	@Router			/webhooks/ledger [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		h.ErrorWithCode(c, dto.ErrCodeSignatureInvalid, "Missing "+SignatureHeader+" header")
		return
	}

	result, err := h.webhookService.Ingest(ctx, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, appsync.ErrWebhookSignatureInvalid):
			h.ErrorWithCode(c, dto.ErrCodeSignatureInvalid, "Webhook signature verification failed")
		case errors.Is(err, appsync.ErrWebhookMalformed):
			h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Webhook payload is malformed")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, result)
}

// Replay godoc
//
//	@Summary		Replay unprocessed webhook events
//	@Description	Re-enqueues pull operations for stored webhook events that were
//	@Description	never processed, typically after an outage.
//	@Tags			webhooks
//	@ID				replayWebhookEvents
//	@Accept			json
//	@Produce		json
//	@Param			X-Organization-ID	header		string					true	"Organization ID"
//	@Param			request				body		ReplayWebhooksRequest	false	"Replay options"
//	@Success		200					{object}	APIResponse[ReplayWebhooksResponse]
//	@Router			/sync/webhooks/replay [post]
func (h *WebhookHandler) Replay(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	req := ReplayWebhooksRequest{Limit: 100}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if req.Limit <= 0 {
			req.Limit = 100
		}
	}

	enqueued, err := h.webhookService.ReplayUnprocessed(ctx, orgID, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ReplayWebhooksResponse{Enqueued: enqueued})
}

// RegisterRoutes registers the public webhook receiver. It is mounted outside
// the versioned API group because the ledger system calls it directly.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/ledger", h.Receive)
}

// RegisterAdminRoutes registers operator-facing webhook routes on the API group
func (h *WebhookHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/webhooks/replay", h.Replay)
}
