package handler

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
)

// DimensionsRequest is the physical size of an artwork
type DimensionsRequest struct {
	Width  float64 `json:"width" binding:"gt=0" example:"60"`
	Height float64 `json:"height" binding:"gt=0" example:"80"`
	Unit   string  `json:"unit" binding:"omitempty,oneof=cm in" example:"cm"`
}

// EditionRequest numbers a print within its run
type EditionRequest struct {
	Number int `json:"number" binding:"min=1" example:"3"`
	Total  int `json:"total" binding:"min=1" example:"50"`
}

// CreateArtworkRequest represents a request to list a new artwork
// @Description Request body for creating an artwork
type CreateArtworkRequest struct {
	Title       string             `json:"title" binding:"required,max=100" example:"Harbour at dusk"`
	Description string             `json:"description" binding:"required,max=2000" example:"Oil on canvas"`
	Price       json.Number        `json:"price" binding:"required,price" swaggertype:"number" example:"150.00"`
	Images      []string           `json:"images" binding:"required,min=1,max=10,dive,url"`
	Tags        []string           `json:"tags" binding:"max=20,dive,max=30"`
	Medium      string             `json:"medium" binding:"max=50" example:"oil"`
	Dimensions  *DimensionsRequest `json:"dimensions"`
	Year        *int               `json:"year" binding:"omitempty,min=1000,max=9999" example:"2024"`
	IsOriginal  *bool              `json:"isOriginal" example:"true"`
	Edition     *EditionRequest    `json:"edition"`
}

// UpdateArtworkRequest represents a partial update. Absent fields keep their value.
// @Description Request body for updating an artwork
type UpdateArtworkRequest struct {
	Title       *string            `json:"title" binding:"omitempty,min=1,max=100"`
	Description *string            `json:"description" binding:"omitempty,min=1,max=2000"`
	Price       *json.Number       `json:"price" binding:"omitempty,price" swaggertype:"number"`
	Images      []string           `json:"images" binding:"omitempty,min=1,max=10,dive,url"`
	Tags        []string           `json:"tags" binding:"omitempty,max=20,dive,max=30"`
	Medium      *string            `json:"medium" binding:"omitempty,max=50"`
	Dimensions  *DimensionsRequest `json:"dimensions"`
	Year        *int               `json:"year" binding:"omitempty,min=1000,max=9999"`
	IsOriginal  *bool              `json:"isOriginal"`
	Edition     *EditionRequest    `json:"edition"`
}

// ListArtworksRequest holds the query parameters of artwork listings
type ListArtworksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort     string `form:"sort" binding:"omitempty,max=50"`
	Status   string `form:"status" binding:"omitempty,oneof=pending approved rejected all"`
	MinPrice string `form:"minPrice" binding:"omitempty,price"`
	MaxPrice string `form:"maxPrice" binding:"omitempty,price"`
	Artist   string `form:"artist" binding:"omitempty,uuid"`
	Tags     string `form:"tags" binding:"omitempty,max=500"`
	Search   string `form:"search" binding:"omitempty,max=100"`
}

// toQuery converts the bound parameters. Values were validated by binding.
func (r ListArtworksRequest) toQuery() catalogapp.ListArtworksQuery {
	q := catalogapp.ListArtworksQuery{
		Page:   r.Page,
		Limit:  r.Limit,
		Sort:   r.Sort,
		Status: r.Status,
		Search: r.Search,
	}
	if r.MinPrice != "" {
		d := decimal.RequireFromString(r.MinPrice)
		q.MinPrice = &d
	}
	if r.MaxPrice != "" {
		d := decimal.RequireFromString(r.MaxPrice)
		q.MaxPrice = &d
	}
	if r.Artist != "" {
		id := uuid.MustParse(r.Artist)
		q.ArtistID = &id
	}
	if r.Tags != "" {
		q.Tags = strings.Split(r.Tags, ",")
	}
	return q
}

func (r *DimensionsRequest) toDomain() *catalog.Dimensions {
	if r == nil {
		return nil
	}
	unit := catalog.DimensionUnit(r.Unit)
	if unit == "" {
		unit = catalog.DimensionUnitCM
	}
	return &catalog.Dimensions{Width: r.Width, Height: r.Height, Unit: unit}
}

func (r *EditionRequest) toDomain() *catalog.Edition {
	if r == nil {
		return nil
	}
	return &catalog.Edition{Number: r.Number, Total: r.Total}
}

func (r CreateArtworkRequest) toInput() catalogapp.CreateArtworkInput {
	return catalogapp.CreateArtworkInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       decimal.RequireFromString(r.Price.String()),
		Images:      r.Images,
		Tags:        r.Tags,
		Medium:      r.Medium,
		Dimensions:  r.Dimensions.toDomain(),
		Year:        r.Year,
		IsOriginal:  r.IsOriginal,
		Edition:     r.Edition.toDomain(),
	}
}

func (r UpdateArtworkRequest) toInput() catalogapp.UpdateArtworkInput {
	input := catalogapp.UpdateArtworkInput{
		Title:       r.Title,
		Description: r.Description,
		Images:      r.Images,
		Tags:        r.Tags,
		Medium:      r.Medium,
		Dimensions:  r.Dimensions.toDomain(),
		Year:        r.Year,
		IsOriginal:  r.IsOriginal,
		Edition:     r.Edition.toDomain(),
	}
	if r.Price != nil {
		price := decimal.RequireFromString(r.Price.String())
		input.Price = &price
	}
	return input
}
