package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/logger"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const (
	// MaxWebhookPayloadSize caps webhook bodies, gateway events are small
	MaxWebhookPayloadSize = 64 << 10
	// SignatureHeader carries the gateway webhook signature
	SignatureHeader = "Stripe-Signature"
)

// PaymentHandler handles checkout sessions, payment history and gateway webhooks
type PaymentHandler struct {
	BaseHandler
	paymentService *paymentapp.Service
	webhookService *paymentapp.WebhookService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *paymentapp.Service, webhookService *paymentapp.WebhookService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		webhookService: webhookService,
	}
}

// CreateListingSessionRequest names the artwork whose listing fee is paid
type CreateListingSessionRequest struct {
	ArtworkID string `json:"artworkId" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// PaymentHistoryRequest holds the query parameters of the payment history
type PaymentHistoryRequest struct {
	Type   string `form:"type" binding:"omitempty,oneof=sale listing_fee"`
	Status string `form:"status" binding:"omitempty,oneof=pending completed failed refunded"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort   string `form:"sort" binding:"omitempty,max=50"`
}

func (r PaymentHistoryRequest) toQuery() paymentapp.HistoryQuery {
	return paymentapp.HistoryQuery{
		Type:   r.Type,
		Status: r.Status,
		Page:   r.Page,
		Limit:  r.Limit,
		Sort:   r.Sort,
	}
}

// WebhookResponse acknowledges a webhook delivery
//
//	@Description	Webhook acknowledgement
type WebhookResponse struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"eventId,omitempty" example:"evt_1234567890"`
	EventType string `json:"eventType,omitempty" example:"checkout.session.completed"`
	Outcome   string `json:"outcome,omitempty" example:"processed"`
	Message   string `json:"message,omitempty"`
}

// Webhook godoc
// @Summary      Payment gateway webhook
// @Description  Receives checkout notifications. Any non 2xx answer makes the gateway retry.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Webhook signature"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} WebhookResponse
// @Failure      401 {object} WebhookResponse
// @Failure      413 {object} WebhookResponse
// @Failure      500 {object} WebhookResponse
// @Router       /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	// the raw body is needed for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > MaxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Missing " + SignatureHeader + " header"})
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Webhook processing failed"
		if de, ok := shared.AsDomainError(err); ok {
			if s := dto.GetHTTPStatus(dto.NormalizeErrorCode(de.Code)); s < http.StatusInternalServerError {
				status, msg = s, de.Message
			}
		}
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("Webhook will be retried", zap.Error(err))
		}
		c.JSON(status, WebhookResponse{Message: msg})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Outcome:   result.Outcome,
		Message:   result.Message,
	})
}

// CreateListingSession godoc
// @Summary      Pay the listing fee
// @Description  Open a checkout session for the flat listing fee of an artwork
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreateListingSessionRequest true "Artwork"
// @Success      201 {object} APIResponse[paymentapp.CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/create-listing-session [post]
func (h *PaymentHandler) CreateListingSession(c *gin.Context) {
	var req CreateListingSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.paymentService.CreateListingSession(c.Request.Context(),
		uuid.MustParse(req.ArtworkID), middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, session)
}

// CreatePurchaseSession godoc
// @Summary      Buy an artwork
// @Description  Open a checkout session for an approved, unsold artwork
// @Tags         payments
// @Produce      json
// @Param        artworkId path string true "Artwork ID"
// @Success      201 {object} APIResponse[paymentapp.CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/create-purchase-session/{artworkId} [post]
func (h *PaymentHandler) CreatePurchaseSession(c *gin.Context) {
	artworkID, ok := h.parseUUIDParam(c, "artworkId")
	if !ok {
		return
	}

	session, err := h.paymentService.CreatePurchaseSession(c.Request.Context(), artworkID, middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, session)
}

// History godoc
// @Summary      Payment history
// @Description  Transactions where the caller is buyer or seller, newest first
// @Tags         payments
// @Produce      json
// @Param        type query string false "Transaction type" Enums(sale, listing_fee)
// @Param        status query string false "Transaction status" Enums(pending, completed, failed, refunded)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Param        sort query string false "Sort field" default(-timestamp)
// @Success      200 {object} APIResponse[[]paymentapp.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	var req PaymentHistoryRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.paymentService.History(c.Request.Context(), middleware.GetUserUUID(c), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// GetTransaction godoc
// @Summary      Get a transaction
// @Tags         payments
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} APIResponse[paymentapp.TransactionResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/transaction/{id} [get]
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	tx, err := h.paymentService.GetTransaction(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tx)
}

// Stats godoc
// @Summary      Payment statistics of the caller
// @Tags         payments
// @Produce      json
// @Success      200 {object} APIResponse[payment.UserStats]
// @Security     BearerAuth
// @Router       /payments/stats [get]
func (h *PaymentHandler) Stats(c *gin.Context) {
	stats, err := h.paymentService.Stats(c.Request.Context(), middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
