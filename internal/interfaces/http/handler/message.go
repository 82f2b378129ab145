package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	messagingapp "github.com/thirdhand/marketplace/internal/application/messaging"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
)

// MessageHandler handles direct messages between users
type MessageHandler struct {
	BaseHandler
	messageService *messagingapp.Service
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *messagingapp.Service) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessageRequest represents a message to deliver
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Content    string `json:"content" binding:"required,max=2000" example:"Is this piece still available?"`
}

// MessagePageRequest pages through a conversation
type MessagePageRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// MarkReadData reports how many messages were marked read
type MarkReadData struct {
	Updated int64 `json:"updated"`
}

// Send godoc
// @Summary      Send a message
// @Description  Artists and buyers may message each other, admins may message anyone
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body SendMessageRequest true "Message"
// @Success      201 {object} APIResponse[messagingapp.MessageResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /messages/send [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), middleware.GetUserUUID(c), messagingapp.SendMessageInput{
		ReceiverID: uuid.MustParse(req.ReceiverID),
		Content:    req.Content,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, msg)
}

// Conversations godoc
// @Summary      List conversations
// @Description  Latest message and unread count per conversation, most recent first
// @Tags         messages
// @Produce      json
// @Success      200 {object} APIResponse[[]messagingapp.ConversationResponse]
// @Security     BearerAuth
// @Router       /messages/conversations [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	conversations, err := h.messageService.Conversations(c.Request.Context(), middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, conversations)
}

// Messages godoc
// @Summary      Messages with a user
// @Description  One page of the conversation, oldest first
// @Tags         messages
// @Produce      json
// @Param        userId path string true "Other user ID"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]messagingapp.MessageResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /messages/{userId} [get]
func (h *MessageHandler) Messages(c *gin.Context) {
	otherID, ok := h.parseUUIDParam(c, "userId")
	if !ok {
		return
	}
	var req MessagePageRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.messageService.Messages(c.Request.Context(), middleware.GetUserUUID(c), otherID, req.Page, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// MarkRead godoc
// @Summary      Mark a conversation read
// @Tags         messages
// @Produce      json
// @Param        userId path string true "Other user ID"
// @Success      200 {object} APIResponse[MarkReadData]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /messages/{userId}/read [put]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	otherID, ok := h.parseUUIDParam(c, "userId")
	if !ok {
		return
	}

	updated, err := h.messageService.MarkRead(c.Request.Context(), middleware.GetUserUUID(c), otherID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MarkReadData{Updated: updated})
}

// UnreadCount godoc
// @Summary      Unread message count
// @Tags         messages
// @Produce      json
// @Success      200 {object} APIResponse[CountData]
// @Security     BearerAuth
// @Router       /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count, err := h.messageService.UnreadCount(c.Request.Context(), middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CountData{Count: count})
}
