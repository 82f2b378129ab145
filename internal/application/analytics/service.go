// Package analytics ranks artists, artworks and categories by sales.
package analytics

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// Period names accepted by the ranking queries
const (
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
	PeriodAll     = "all"
)

const (
	DefaultLimit      = 10
	MaxLimit          = 100
	MaxCategoryLength = 50
	ReportTopN        = 5

	reportCachePrefix = "analytics:report:"
	reportCacheTTL    = 10 * time.Minute
)

var periodDays = map[string]int{
	PeriodWeek:    7,
	PeriodMonth:   30,
	PeriodQuarter: 90,
	PeriodYear:    365,
}

// Query selects a ranking window
type Query struct {
	Period   string
	Limit    int
	Category string
}

// ArtistRanking is one row of the top artists ranking
type ArtistRanking struct {
	catalog.ArtistSales
	Artist *catalogapp.ArtistSummary `json:"artist,omitempty"`
}

// Report bundles the top five of each ranking
type Report struct {
	Period        string                       `json:"period"`
	TopArtists    []ArtistRanking              `json:"topArtists"`
	TopArtworks   []catalogapp.ArtworkResponse `json:"topArtworks"`
	TopCategories []catalog.CategorySales      `json:"topCategories"`
	GeneratedAt   time.Time                    `json:"generatedAt"`
}

// Service computes sales rankings
type Service struct {
	artworks catalog.ArtworkRepository
	users    identity.UserRepository
	cache    catalogapp.Cache
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new analytics Service. cache may be nil.
func NewService(artworks catalog.ArtworkRepository, users identity.UserRepository, cache catalogapp.Cache, logger *zap.Logger) *Service {
	return &Service{
		artworks: artworks,
		users:    users,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// TopArtists ranks artists by revenue of sold artworks
func (s *Service) TopArtists(ctx context.Context, q Query) ([]ArtistRanking, error) {
	since, limit, err := s.window(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.artworks.TopArtists(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ArtistID
	}
	artists := make(map[uuid.UUID]*identity.User, len(ids))
	if len(ids) > 0 {
		users, err := s.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			artists[u.ID] = u
		}
	}

	out := make([]ArtistRanking, len(rows))
	for i, r := range rows {
		r.AveragePrice = r.AveragePrice.Round(2)
		out[i] = ArtistRanking{ArtistSales: r}
		if u, ok := artists[r.ArtistID]; ok {
			out[i].Artist = &catalogapp.ArtistSummary{
				ID:       u.ID,
				Username: u.Username,
				Bio:      u.Profile.Bio,
				Website:  u.Profile.Website,
			}
		}
	}
	return out, nil
}

// TopArtworks lists the most expensive sold artworks, optionally for one medium
func (s *Service) TopArtworks(ctx context.Context, q Query) ([]catalogapp.ArtworkResponse, error) {
	since, limit, err := s.window(q)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(q.Category)
	if n := utf8.RuneCountInString(category); q.Category != "" && (n < 1 || n > MaxCategoryLength) {
		return nil, shared.NewDomainErrorf("INVALID_CATEGORY", "Category must be 1 to %d characters", MaxCategoryLength)
	}

	artworks, err := s.artworks.TopArtworks(ctx, since, category, limit)
	if err != nil {
		return nil, err
	}
	out := make([]catalogapp.ArtworkResponse, len(artworks))
	for i, a := range artworks {
		out[i] = catalogapp.ToArtworkResponse(a, nil)
	}
	return out, nil
}

// TopCategories ranks media by number of sales
func (s *Service) TopCategories(ctx context.Context, q Query) ([]catalog.CategorySales, error) {
	since, limit, err := s.window(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.artworks.TopCategories(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AveragePrice = rows[i].AveragePrice.Round(2)
	}
	return rows, nil
}

// Report returns the top five of every ranking for a period, month by default
func (s *Service) Report(ctx context.Context, period string) (*Report, error) {
	if period == "" {
		period = PeriodMonth
	}
	key := reportCachePrefix + period
	if s.cache != nil {
		var cached Report
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	q := Query{Period: period, Limit: ReportTopN}
	artists, err := s.TopArtists(ctx, q)
	if err != nil {
		return nil, err
	}
	artworks, err := s.TopArtworks(ctx, q)
	if err != nil {
		return nil, err
	}
	categories, err := s.TopCategories(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Period:        period,
		TopArtists:    artists,
		TopArtworks:   artworks,
		TopCategories: categories,
		GeneratedAt:   s.now(),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, reportCacheTTL); err != nil {
			s.logger.Warn("Failed to cache analytics report", zap.String("period", period), zap.Error(err))
		}
	}
	return report, nil
}

// window resolves the period start (nil for all time) and the limit
func (s *Service) window(q Query) (*time.Time, int, error) {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, 0, shared.NewDomainErrorf("INVALID_LIMIT", "Limit must be between 1 and %d", MaxLimit)
	}

	period := q.Period
	if period == "" {
		period = PeriodAll
	}
	if period == PeriodAll {
		return nil, limit, nil
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, 0, shared.NewDomainError("INVALID_PERIOD", "Period must be one of week, month, quarter, year, all")
	}
	since := s.now().AddDate(0, 0, -days)
	return &since, limit, nil
}
