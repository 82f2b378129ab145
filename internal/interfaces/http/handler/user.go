package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
)

// UserHandler serves profiles, block lists and presence
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	Bio         string `json:"bio" binding:"max=500" example:"Oil painter from Lisbon"`
	Website     string `json:"website" binding:"omitempty,url,max=200" example:"https://mona.art"`
	SocialLinks struct {
		Facebook  string `json:"facebook" binding:"omitempty,url"`
		Twitter   string `json:"twitter" binding:"omitempty,url"`
		Instagram string `json:"instagram" binding:"omitempty,url"`
	} `json:"socialLinks"`
}

// OnlineUsersQuery filters the online user list
type OnlineUsersQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=artist buyer admin"`
}

// GetProfile godoc
// @Summary      Get a public profile
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} APIResponse[identityapp.PublicProfile]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}

// UpdateProfile godoc
// @Summary      Update own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserUUID(c), identityapp.UpdateProfileInput{
		Bio:     req.Bio,
		Website: req.Website,
		SocialLinks: identityapp.SocialLinks{
			Facebook:  req.SocialLinks.Facebook,
			Twitter:   req.SocialLinks.Twitter,
			Instagram: req.SocialLinks.Instagram,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// Block godoc
// @Summary      Block a user
// @Description  Blocked users cannot exchange messages with the caller
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID to block"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/block [post]
func (h *UserHandler) Block(c *gin.Context) {
	target, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Block(c.Request.Context(), middleware.GetUserUUID(c), target); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, message("User blocked"))
}

// Unblock godoc
// @Summary      Unblock a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID to unblock"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/block [delete]
func (h *UserHandler) Unblock(c *gin.Context) {
	target, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Unblock(c.Request.Context(), middleware.GetUserUUID(c), target); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, message("User unblocked"))
}

// ListBlocked godoc
// @Summary      List blocked users
// @Tags         users
// @Produce      json
// @Success      200 {object} APIResponse[[]identityapp.PublicProfile]
// @Security     BearerAuth
// @Router       /users/blocked [get]
func (h *UserHandler) ListBlocked(c *gin.Context) {
	users, err := h.userService.ListBlocked(c.Request.Context(), middleware.GetUserUUID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, users)
}

// OnlineUsers godoc
// @Summary      List online users
// @Tags         users
// @Produce      json
// @Param        role query string false "Filter by role" Enums(artist, buyer, admin)
// @Success      200 {object} APIResponse[[]identityapp.PublicProfile]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/online [get]
func (h *UserHandler) OnlineUsers(c *gin.Context) {
	var q OnlineUsersQuery
	if !h.BindQuery(c, &q) {
		return
	}

	var role *identity.Role
	if q.Role != "" {
		r := identity.Role(q.Role)
		role = &r
	}

	users, err := h.userService.OnlineUsers(c.Request.Context(), role)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, users)
}
