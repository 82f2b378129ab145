// Package admin implements moderation and platform statistics for admins.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	// DefaultUserPageSize is the page size of the user list
	DefaultUserPageSize = 20
	// NewUserWindow is how far back "new users" are counted
	NewUserWindow = 30 * 24 * time.Hour
)

var userSort = shared.Sort{Field: "createdAt", Direction: shared.SortDesc}

var errArtworkNotFound = shared.NewDomainError("NOT_FOUND", "Artwork not found")

// UsersQuery filters the user list
type UsersQuery struct {
	Role       string
	IsVerified *bool
	Search     string
	Sort       string
	Page       int
	Limit      int
}

// UserPage is a page of users
type UserPage = shared.Paginated[identityapp.UserResponse]

// PlatformOverview combines the headline numbers of the platform
type PlatformOverview struct {
	Users        *identity.UserStats     `json:"users"`
	Artworks     *catalog.ArtworkStats   `json:"artworks"`
	Transactions *payment.RevenueSummary `json:"transactions"`
	GeneratedAt  time.Time               `json:"generatedAt"`
}

// Service handles admin operations
type Service struct {
	txScope      appshared.TransactionScope
	artworks     catalog.ArtworkRepository
	users        identity.UserRepository
	transactions payment.TransactionRepository
	catalog      *catalogapp.ArtworkService
	cache        *catalogapp.ArtworkCache
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new admin Service
func NewService(
	txScope appshared.TransactionScope,
	artworks catalog.ArtworkRepository,
	users identity.UserRepository,
	transactions payment.TransactionRepository,
	catalogService *catalogapp.ArtworkService,
	cache *catalogapp.ArtworkCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		txScope:      txScope,
		artworks:     artworks,
		users:        users,
		transactions: transactions,
		catalog:      catalogService,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// ApproveArtwork publishes a pending artwork
func (s *Service) ApproveArtwork(ctx context.Context, artworkID, adminID uuid.UUID) (*catalogapp.ArtworkResponse, error) {
	artwork, err := s.moderate(ctx, artworkID, func(a *catalog.Artwork) error {
		return a.Approve(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Artwork approved",
		zap.String("artwork_id", artworkID.String()),
		zap.String("admin_id", adminID.String()))
	resp := catalogapp.ToArtworkResponse(artwork, nil)
	return &resp, nil
}

// RejectArtwork refuses an artwork. A reason is required.
func (s *Service) RejectArtwork(ctx context.Context, artworkID, adminID uuid.UUID, reason string) (*catalogapp.ArtworkResponse, error) {
	artwork, err := s.moderate(ctx, artworkID, func(a *catalog.Artwork) error {
		return a.Reject(reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Artwork rejected",
		zap.String("artwork_id", artworkID.String()),
		zap.String("admin_id", adminID.String()),
		zap.String("reason", artwork.RejectionReason))
	resp := catalogapp.ToArtworkResponse(artwork, nil)
	return &resp, nil
}

func (s *Service) moderate(ctx context.Context, artworkID uuid.UUID, apply func(*catalog.Artwork) error) (*catalog.Artwork, error) {
	var artwork *catalog.Artwork
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		a, err := repos.Artworks().FindByIDForUpdate(ctx, artworkID)
		if err != nil {
			return err
		}
		if err := apply(a); err != nil {
			return err
		}
		if err := repos.Artworks().Update(ctx, a); err != nil {
			return err
		}
		artwork = a
		return repos.Events().Record(ctx, a.PullDomainEvents()...)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, artworkID)
	return artwork, nil
}

// PendingArtworks returns the moderation queue, oldest first
func (s *Service) PendingArtworks(ctx context.Context, viewer appshared.Viewer, page, limit int) (*catalogapp.ArtworkPage, error) {
	return s.catalog.List(ctx, viewer, catalogapp.ListArtworksQuery{
		Page:   page,
		Limit:  limit,
		Sort:   "createdAt",
		Status: string(catalog.ArtworkStatusPending),
	})
}

// Artworks lists artworks in any status. An empty status means all.
func (s *Service) Artworks(ctx context.Context, viewer appshared.Viewer, q catalogapp.ListArtworksQuery) (*catalogapp.ArtworkPage, error) {
	if q.Status == "" {
		q.Status = "all"
	}
	return s.catalog.List(ctx, viewer, q)
}

// ArtworkStats returns platform artwork counts
func (s *Service) ArtworkStats(ctx context.Context) (*catalog.ArtworkStats, error) {
	return s.artworks.Stats(ctx, nil)
}

// UserStats returns platform user counts with new users of the last 30 days
func (s *Service) UserStats(ctx context.Context) (*identity.UserStats, error) {
	return s.users.Stats(ctx, s.now().Add(-NewUserWindow))
}

// PlatformOverview returns users, artworks and revenue in one response
func (s *Service) PlatformOverview(ctx context.Context) (*PlatformOverview, error) {
	users, err := s.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	artworks, err := s.ArtworkStats(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.transactions.PlatformRevenue(ctx)
	if err != nil {
		return nil, err
	}
	return &PlatformOverview{
		Users:        users,
		Artworks:     artworks,
		Transactions: revenue,
		GeneratedAt:  s.now(),
	}, nil
}

// Users lists accounts. Secrets are never part of the response.
func (s *Service) Users(ctx context.Context, q UsersQuery) (*UserPage, error) {
	opts := shared.ListOptions{
		Page:  q.Page,
		Limit: q.Limit,
		Sort:  shared.ParseSort(q.Sort, userSort),
	}
	filter := identity.UserFilter{
		ListOptions: opts.Normalize(DefaultUserPageSize),
		Search:      q.Search,
		IsVerified:  q.IsVerified,
	}
	if q.Role != "" {
		role := identity.Role(q.Role)
		if !role.IsValid() {
			return nil, shared.NewDomainErrorf("INVALID_ROLE", "Unknown role %q", q.Role)
		}
		filter.Role = &role
	}

	users, total, err := s.users.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]identityapp.UserResponse, len(users))
	for i, u := range users {
		items[i] = identityapp.ToUserResponse(u)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.Limit)
	return &page, nil
}

// Transactions lists all transactions, newest first by default
func (s *Service) Transactions(ctx context.Context, q paymentapp.HistoryQuery) (*paymentapp.TransactionPage, error) {
	filter, err := q.Filter(shared.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	items, total, err := s.transactions.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(paymentapp.ToTransactionResponses(items), total, filter.Page, filter.Limit)
	return &page, nil
}
