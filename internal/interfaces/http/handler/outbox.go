package handler

import (
	"github.com/gin-gonic/gin"
	adminapp "github.com/thirdhand/marketplace/internal/application/admin"
)

// OutboxHandler exposes the background job dead letters to admins
type OutboxHandler struct {
	BaseHandler
	outboxService *adminapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService *adminapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// RetriedData reports how many entries were requeued
type RetriedData struct {
	Retried int64 `json:"retried"`
}

// DeadLetters godoc
// @Summary      List dead background jobs
// @Tags         admin
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]adminapp.OutboxEntryResponse]
// @Security     BearerAuth
// @Router       /admin/outbox/dead [get]
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	var req MessagePageRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.outboxService.DeadLetters(c.Request.Context(), req.Page, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Stats godoc
// @Summary      Outbox counts per status
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[adminapp.OutboxStats]
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Get godoc
// @Summary      Get an outbox entry
// @Tags         admin
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} APIResponse[adminapp.OutboxEntryResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/{id} [get]
func (h *OutboxHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.Entry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Retry godoc
// @Summary      Requeue a dead background job
// @Tags         admin
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} APIResponse[adminapp.OutboxEntryResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/{id}/retry [post]
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAll godoc
// @Summary      Requeue every dead background job
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[RetriedData]
// @Security     BearerAuth
// @Router       /admin/outbox/retry-all [post]
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	n, err := h.outboxService.RetryAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RetriedData{Retried: n})
}
