package handler

import (
	"github.com/gin-gonic/gin"
	analyticsapp "github.com/thirdhand/marketplace/internal/application/analytics"
)

// FeaturedLimit is the number of entries on the public featured lists
const FeaturedLimit = 6

// AnalyticsHandler serves sales rankings
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *analyticsapp.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *analyticsapp.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// RankingRequest selects a ranking window. Limits are checked by the service
// so that out of range values get the ranking error codes.
type RankingRequest struct {
	Period   string `form:"period" binding:"omitempty,oneof=week month quarter year all"`
	Limit    int    `form:"limit"`
	Category string `form:"category"`
}

func (r RankingRequest) toQuery() analyticsapp.Query {
	return analyticsapp.Query{Period: r.Period, Limit: r.Limit, Category: r.Category}
}

// TopArtists godoc
// @Summary      Top artists by revenue
// @Tags         analytics
// @Produce      json
// @Param        period query string false "Window" Enums(week, month, quarter, year, all) default(all)
// @Param        limit query int false "Entries, 1 to 100" default(10)
// @Success      200 {object} APIResponse[[]analyticsapp.ArtistRanking]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/top-artists [get]
func (h *AnalyticsHandler) TopArtists(c *gin.Context) {
	var req RankingRequest
	if !h.BindQuery(c, &req) {
		return
	}

	rows, err := h.analyticsService.TopArtists(c.Request.Context(), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// TopArtworks godoc
// @Summary      Most expensive sold artworks
// @Tags         analytics
// @Produce      json
// @Param        period query string false "Window" Enums(week, month, quarter, year, all) default(all)
// @Param        limit query int false "Entries, 1 to 100" default(10)
// @Param        category query string false "Medium, case insensitive"
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/top-artworks [get]
func (h *AnalyticsHandler) TopArtworks(c *gin.Context) {
	var req RankingRequest
	if !h.BindQuery(c, &req) {
		return
	}

	rows, err := h.analyticsService.TopArtworks(c.Request.Context(), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// TopCategories godoc
// @Summary      Best selling media
// @Tags         analytics
// @Produce      json
// @Param        period query string false "Window" Enums(week, month, quarter, year, all) default(all)
// @Param        limit query int false "Entries, 1 to 100" default(10)
// @Success      200 {object} APIResponse[[]catalog.CategorySales]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/top-categories [get]
func (h *AnalyticsHandler) TopCategories(c *gin.Context) {
	var req RankingRequest
	if !h.BindQuery(c, &req) {
		return
	}

	rows, err := h.analyticsService.TopCategories(c.Request.Context(), req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// Report godoc
// @Summary      Sales report
// @Description  Top five of every ranking, cached for ten minutes
// @Tags         analytics
// @Produce      json
// @Param        period query string false "Window" Enums(week, month, quarter, year, all) default(month)
// @Success      200 {object} APIResponse[analyticsapp.Report]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /analytics/report [get]
func (h *AnalyticsHandler) Report(c *gin.Context) {
	var req RankingRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.analyticsService.Report(c.Request.Context(), req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// FeaturedArtists godoc
// @Summary      Featured artists
// @Description  Public list of the best selling artists of the last month
// @Tags         analytics
// @Produce      json
// @Success      200 {object} APIResponse[[]analyticsapp.ArtistRanking]
// @Router       /analytics/featured/artists [get]
func (h *AnalyticsHandler) FeaturedArtists(c *gin.Context) {
	rows, err := h.analyticsService.TopArtists(c.Request.Context(), analyticsapp.Query{
		Period: analyticsapp.PeriodMonth,
		Limit:  FeaturedLimit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// FeaturedArtworks godoc
// @Summary      Featured artworks
// @Description  Public list of the most valuable artworks sold in the last month
// @Tags         analytics
// @Produce      json
// @Success      200 {object} APIResponse[[]catalogapp.ArtworkResponse]
// @Router       /analytics/featured/artworks [get]
func (h *AnalyticsHandler) FeaturedArtworks(c *gin.Context) {
	rows, err := h.analyticsService.TopArtworks(c.Request.Context(), analyticsapp.Query{
		Period: analyticsapp.PeriodMonth,
		Limit:  FeaturedLimit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}
