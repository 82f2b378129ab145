package handler

import (
	"github.com/gin-gonic/gin"
	adminapp "github.com/thirdhand/marketplace/internal/application/admin"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
)

// AdminHandler serves moderation and platform statistics. Every route
// requires the admin role.
type AdminHandler struct {
	BaseHandler
	adminService *adminapp.Service
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(adminService *adminapp.Service) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// RejectArtworkRequest carries the reason shown to the artist
type RejectArtworkRequest struct {
	Reason string `json:"reason" binding:"required,max=500" example:"Images are too blurry"`
}

// AdminUsersRequest holds the query parameters of the user list
type AdminUsersRequest struct {
	Role       string `form:"role" binding:"omitempty,oneof=artist buyer admin"`
	IsVerified *bool  `form:"isVerified"`
	Search     string `form:"search" binding:"omitempty,max=100"`
	Sort       string `form:"sort" binding:"omitempty,max=50"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ApproveArtwork godoc
// @Summary      Approve an artwork
// @Tags         admin
// @Produce      json
// @Param        id path string true "Artwork ID"
// @Success      200 {object} APIResponse[catalogapp.ArtworkResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/artworks/{id}/approve [put]
func (h *AdminHandler) ApproveArtwork(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	artwork, err := h.adminService.ApproveArtwork(c.Request.Context(), id, middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, artwork)
}

// RejectArtwork godoc
// @Summary      Reject an artwork
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Artwork ID"
// @Param        request body RejectArtworkRequest true "Rejection reason"
// @Success      200 {object} APIResponse[catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/artworks/{id}/reject [put]
func (h *AdminHandler) RejectArtwork(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectArtworkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	artwork, err := h.adminService.RejectArtwork(c.Request.Context(), id, middleware.GetUserUUID(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, artwork)
}

// PendingArtworks godoc
// @Summary      Moderation queue
// @Description  Pending artworks, oldest first
// @Tags         admin
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Security     BearerAuth
// @Router       /admin/artworks/pending [get]
func (h *AdminHandler) PendingArtworks(c *gin.Context) {
	var req MessagePageRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.adminService.PendingArtworks(c.Request.Context(), viewer(c), req.Page, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Artworks godoc
// @Summary      List artworks in any status
// @Tags         admin
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending, approved, rejected, all)
// @Param        artist query string false "Artist ID"
// @Param        search query string false "Text search"
// @Param        sort query string false "Sort field" default(-createdAt)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/artworks [get]
func (h *AdminHandler) Artworks(c *gin.Context) {
	var req ListArtworksRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.adminService.Artworks(c.Request.Context(), viewer(c), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// ArtworkStats godoc
// @Summary      Platform artwork counts
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[catalog.ArtworkStats]
// @Security     BearerAuth
// @Router       /admin/stats/artworks [get]
func (h *AdminHandler) ArtworkStats(c *gin.Context) {
	stats, err := h.adminService.ArtworkStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// UserStats godoc
// @Summary      Platform user counts
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[identity.UserStats]
// @Security     BearerAuth
// @Router       /admin/stats/users [get]
func (h *AdminHandler) UserStats(c *gin.Context) {
	stats, err := h.adminService.UserStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// Overview godoc
// @Summary      Platform overview
// @Description  Users, artworks and revenue in one response
// @Tags         admin
// @Produce      json
// @Success      200 {object} APIResponse[adminapp.PlatformOverview]
// @Security     BearerAuth
// @Router       /admin/overview [get]
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.adminService.PlatformOverview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overview)
}

// Users godoc
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Param        role query string false "Role" Enums(artist, buyer, admin)
// @Param        isVerified query bool false "Verification state"
// @Param        search query string false "Username or email"
// @Param        sort query string false "Sort field" default(-createdAt)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]identityapp.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	var req AdminUsersRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.adminService.Users(c.Request.Context(), adminapp.UsersQuery{
		Role:       req.Role,
		IsVerified: req.IsVerified,
		Search:     req.Search,
		Sort:       req.Sort,
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Transactions godoc
// @Summary      List all transactions
// @Tags         admin
// @Produce      json
// @Param        type query string false "Transaction type" Enums(sale, listing_fee)
// @Param        status query string false "Transaction status" Enums(pending, completed, failed, refunded)
// @Param        sort query string false "Sort field" default(-timestamp)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]paymentapp.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/transactions [get]
func (h *AdminHandler) Transactions(c *gin.Context) {
	var req PaymentHistoryRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.adminService.Transactions(c.Request.Context(), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}
