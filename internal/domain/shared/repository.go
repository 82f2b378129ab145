package shared

import (
	"math"
	"strings"
)

// Pagination defaults
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortDirection is asc or desc
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is a parsed "-field" / "field" sort expression
type Sort struct {
	Field     string
	Direction SortDirection
}

// ParseSort parses a sort string where a leading "-" means descending.
// An empty string yields the fallback.
func ParseSort(raw string, fallback Sort) Sort {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if strings.HasPrefix(raw, "-") {
		return Sort{Field: strings.TrimPrefix(raw, "-"), Direction: SortDesc}
	}
	return Sort{Field: strings.TrimPrefix(raw, "+"), Direction: SortAsc}
}

// ListOptions carries page, limit and sort for list queries
type ListOptions struct {
	Page  int
	Limit int
	Sort  Sort
}

// Normalize clamps page and limit into valid ranges
func (o ListOptions) Normalize(defaultLimit int) ListOptions {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if o.Limit < 1 {
		o.Limit = defaultLimit
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	return o
}

// Offset returns the row offset for the current page
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.Limit
}

// Pagination describes a page of a result set
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes page metadata
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: int64((page-1)*limit+limit) < total,
		HasPrevPage: page > 1,
	}
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, limit int) Paginated[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return Paginated[T]{
		Items:      items,
		Pagination: NewPagination(page, limit, total),
	}
}
