package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
)

// ArtworkHandler handles artwork listing endpoints
type ArtworkHandler struct {
	BaseHandler
	artworkService *catalogapp.ArtworkService
}

// NewArtworkHandler creates a new ArtworkHandler
func NewArtworkHandler(artworkService *catalogapp.ArtworkService) *ArtworkHandler {
	return &ArtworkHandler{artworkService: artworkService}
}

// Create godoc
// @Summary      List a new artwork
// @Description  Create a pending artwork. It becomes public once the listing fee is paid and an admin approves it.
// @Tags         artworks
// @Accept       json
// @Produce      json
// @Param        request body CreateArtworkRequest true "Artwork"
// @Success      201 {object} APIResponse[catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /artworks [post]
func (h *ArtworkHandler) Create(c *gin.Context) {
	var req CreateArtworkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	artwork, err := h.artworkService.Create(c.Request.Context(), viewer(c), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, artwork)
}

// List godoc
// @Summary      List artworks
// @Description  Approved artworks for everyone. Admins may filter by status.
// @Tags         artworks
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Param        sort query string false "Sort field, prefix - for descending" default(-createdAt)
// @Param        status query string false "Status filter (admin only)"
// @Param        minPrice query string false "Minimum price"
// @Param        maxPrice query string false "Maximum price"
// @Param        artist query string false "Artist ID"
// @Param        tags query string false "Comma separated tags"
// @Param        search query string false "Text search"
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /artworks [get]
func (h *ArtworkHandler) List(c *gin.Context) {
	var req ListArtworksRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.artworkService.List(c.Request.Context(), viewer(c), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Search godoc
// @Summary      Search artworks
// @Description  Match approved artworks by title, description or tags
// @Tags         artworks
// @Produce      json
// @Param        q query string true "Search text"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /artworks/search [get]
func (h *ArtworkHandler) Search(c *gin.Context) {
	var req ListArtworksRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.artworkService.Search(c.Request.Context(), c.Query("q"), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Get godoc
// @Summary      Get an artwork
// @Tags         artworks
// @Produce      json
// @Param        id path string true "Artwork ID"
// @Success      200 {object} APIResponse[catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /artworks/{id} [get]
func (h *ArtworkHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	artwork, err := h.artworkService.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, artwork)
}

// Update godoc
// @Summary      Update an artwork
// @Description  The artist may edit an unsold artwork. Edits send it back to moderation.
// @Tags         artworks
// @Accept       json
// @Produce      json
// @Param        id path string true "Artwork ID"
// @Param        request body UpdateArtworkRequest true "Changed fields"
// @Success      200 {object} APIResponse[catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /artworks/{id} [put]
func (h *ArtworkHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateArtworkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	artwork, err := h.artworkService.Update(c.Request.Context(), viewer(c), id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, artwork)
}

// Delete godoc
// @Summary      Delete an artwork
// @Tags         artworks
// @Produce      json
// @Param        id path string true "Artwork ID"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /artworks/{id} [delete]
func (h *ArtworkHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.artworkService.Delete(c.Request.Context(), viewer(c), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, message("Artwork deleted"))
}

// ListByArtist godoc
// @Summary      List the artworks of an artist
// @Tags         artworks
// @Produce      json
// @Param        artistId path string true "Artist ID"
// @Param        status query string false "Status filter (artist or admin only)"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /artworks/artist/{artistId} [get]
func (h *ArtworkHandler) ListByArtist(c *gin.Context) {
	artistID, ok := h.parseUUIDParam(c, "artistId")
	if !ok {
		return
	}
	var req ListArtworksRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.artworkService.ListByArtist(c.Request.Context(), viewer(c), artistID, req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// ListMine godoc
// @Summary      List own artworks
// @Tags         artworks
// @Produce      json
// @Param        status query string false "Status filter"
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /artworks/mine [get]
func (h *ArtworkHandler) ListMine(c *gin.Context) {
	var req ListArtworksRequest
	if !h.BindQuery(c, &req) {
		return
	}

	page, err := h.artworkService.ListMine(c.Request.Context(), viewer(c), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	Page(c, page)
}

// Stats godoc
// @Summary      Artwork counts
// @Description  Artists get their own counts, everyone else the platform totals
// @Tags         artworks
// @Produce      json
// @Success      200 {object} APIResponse[catalog.ArtworkStats]
// @Router       /artworks/stats [get]
func (h *ArtworkHandler) Stats(c *gin.Context) {
	stats, err := h.artworkService.Stats(c.Request.Context(), viewer(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
