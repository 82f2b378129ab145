package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

var defaultSort = shared.Sort{Field: "createdAt", Direction: shared.SortDesc}

var (
	errArtworkNotFound = shared.NewDomainError("NOT_FOUND", "Artwork not found")
	errArtistOnly      = shared.NewDomainError("FORBIDDEN", "Only artists can perform this action")
)

// ArtworkService handles artwork listing operations
type ArtworkService struct {
	txScope  appshared.TransactionScope
	artworks catalog.ArtworkRepository
	users    identity.UserRepository
	cache    *ArtworkCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewArtworkService creates a new ArtworkService
func NewArtworkService(
	txScope appshared.TransactionScope,
	artworks catalog.ArtworkRepository,
	users identity.UserRepository,
	cache *ArtworkCache,
	logger *zap.Logger,
) *ArtworkService {
	return &ArtworkService{
		txScope:  txScope,
		artworks: artworks,
		users:    users,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Create lists a new artwork for moderation together with the first
// record of its traceability chain
func (s *ArtworkService) Create(ctx context.Context, viewer appshared.Viewer, input CreateArtworkInput) (*ArtworkResponse, error) {
	if viewer.Role != identity.RoleArtist {
		return nil, errArtistOnly
	}

	isOriginal := true
	if input.IsOriginal != nil {
		isOriginal = *input.IsOriginal
	}
	artwork, err := catalog.NewArtwork(viewer.UserID, catalog.Details{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Images:      input.Images,
		Tags:        input.Tags,
		Medium:      input.Medium,
		Dimensions:  input.Dimensions,
		Year:        input.Year,
		IsOriginal:  isOriginal,
		Edition:     input.Edition,
	})
	if err != nil {
		return nil, err
	}

	record, err := provenance.NewRecord(artwork.ID, viewer.UserID, viewer.UserID, provenance.TransactionTypeCreated, nil, map[string]any{
		"price":     artwork.Price.InexactFloat64(),
		"condition": "new",
	})
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		if err := repos.Artworks().Create(ctx, artwork); err != nil {
			return err
		}
		if err := repos.Provenance().Append(ctx, record); err != nil {
			return err
		}
		return repos.Events().Record(ctx, artwork.PullDomainEvents()...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Artwork created",
		zap.String("artwork_id", artwork.ID.String()),
		zap.String("artist_id", viewer.UserID.String()),
		zap.String("traceability_hash", record.TransactionHash))
	resp := ToArtworkResponse(artwork, nil)
	return &resp, nil
}

// List returns public listings. Admins may filter on any status.
func (s *ArtworkService) List(ctx context.Context, viewer appshared.Viewer, q ListArtworksQuery) (*ArtworkPage, error) {
	statuses := []catalog.ArtworkStatus{catalog.ArtworkStatusApproved}
	if viewer.IsAdmin() && q.Status != "" {
		var err error
		if statuses, err = parseStatuses(q.Status); err != nil {
			return nil, err
		}
	}
	return s.list(ctx, q, statuses)
}

// Get returns one artwork. Pending and rejected artworks are visible only
// to their artist and to admins.
func (s *ArtworkService) Get(ctx context.Context, viewer appshared.Viewer, id uuid.UUID) (*ArtworkResponse, error) {
	if cached, ok := s.cache.getItem(ctx, id); ok {
		return cached, nil
	}

	artwork, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !artwork.IsPublic() && !viewer.IsAdmin() && !viewer.Is(artwork.ArtistID) {
		return nil, errArtworkNotFound
	}

	artist, err := s.users.FindByID(ctx, artwork.ArtistID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	resp := ToArtworkResponse(artwork, artist)
	if artwork.IsPublic() {
		s.cache.setItem(ctx, &resp)
	}
	return &resp, nil
}

// Update changes an unsold artwork of the caller. The row is locked so a
// sale completing at the same time is never written over.
func (s *ArtworkService) Update(ctx context.Context, viewer appshared.Viewer, id uuid.UUID, input UpdateArtworkInput) (*ArtworkResponse, error) {
	var artwork *catalog.Artwork
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		if artwork, err = findForUpdate(ctx, repos, id); err != nil {
			return err
		}
		if !artwork.IsOwnedBy(viewer.UserID) {
			return shared.NewDomainError("FORBIDDEN", "Not authorized to update this artwork")
		}
		if err := artwork.Update(catalog.Patch{
			Title:       input.Title,
			Description: input.Description,
			Price:       input.Price,
			Images:      input.Images,
			Tags:        input.Tags,
			Medium:      input.Medium,
			Dimensions:  input.Dimensions,
			Year:        input.Year,
			IsOriginal:  input.IsOriginal,
			Edition:     input.Edition,
		}); err != nil {
			return err
		}
		return repos.Artworks().Update(ctx, artwork)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, artwork.ID)

	resp := ToArtworkResponse(artwork, nil)
	return &resp, nil
}

// Delete removes an unsold artwork of the caller. Stored images and
// unfinished listing payments are removed by the cleanup job.
func (s *ArtworkService) Delete(ctx context.Context, viewer appshared.Viewer, id uuid.UUID) error {
	var artwork *catalog.Artwork
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		if artwork, err = findForUpdate(ctx, repos, id); err != nil {
			return err
		}
		if !artwork.IsOwnedBy(viewer.UserID) {
			return shared.NewDomainError("FORBIDDEN", "Not authorized to delete this artwork")
		}
		if artwork.IsSold() {
			return shared.NewDomainError("ARTWORK_SOLD", "Cannot delete sold artwork")
		}
		if err := repos.Artworks().Delete(ctx, artwork.ID); err != nil {
			return err
		}
		return repos.Events().Record(ctx, catalog.NewArtworkDeletedEvent(artwork, viewer.UserID))
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, artwork.ID)

	s.logger.Info("Artwork deleted",
		zap.String("artwork_id", artwork.ID.String()),
		zap.String("artist_id", artwork.ArtistID.String()))
	return nil
}

// ListByArtist returns the artworks of one artist. The artist and admins
// see every status and may narrow it with an explicit status filter.
func (s *ArtworkService) ListByArtist(ctx context.Context, viewer appshared.Viewer, artistID uuid.UUID, q ListArtworksQuery) (*ArtworkPage, error) {
	artist, err := s.users.FindByID(ctx, artistID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Artist not found")
		}
		return nil, err
	}
	if !artist.IsArtist() {
		return nil, shared.NewDomainError("NOT_FOUND", "Artist not found")
	}

	q.ArtistID = &artistID
	statuses := []catalog.ArtworkStatus{catalog.ArtworkStatusApproved}
	if viewer.Is(artistID) || viewer.IsAdmin() {
		if statuses, err = parseStatuses(q.Status); err != nil {
			return nil, err
		}
	}
	return s.list(ctx, q, statuses)
}

// ListMine returns every artwork of the calling artist
func (s *ArtworkService) ListMine(ctx context.Context, viewer appshared.Viewer, q ListArtworksQuery) (*ArtworkPage, error) {
	if viewer.Role != identity.RoleArtist {
		return nil, errArtistOnly
	}
	statuses, err := parseStatuses(q.Status)
	if err != nil {
		return nil, err
	}
	q.ArtistID = &viewer.UserID
	return s.list(ctx, q, statuses)
}

// Search matches approved artworks by title, description or tags
func (s *ArtworkService) Search(ctx context.Context, text string, q ListArtworksQuery) (*ArtworkPage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.NewDomainError("SEARCH_QUERY_REQUIRED", "Search query is required")
	}
	q.Search = text
	return s.list(ctx, q, []catalog.ArtworkStatus{catalog.ArtworkStatusApproved})
}

// Stats returns the counts of the calling artist, or of the whole
// platform for everybody else
func (s *ArtworkService) Stats(ctx context.Context, viewer appshared.Viewer) (*catalog.ArtworkStats, error) {
	var artistID *uuid.UUID
	if viewer.Role == identity.RoleArtist {
		artistID = &viewer.UserID
	}
	return s.artworks.Stats(ctx, artistID)
}

func (s *ArtworkService) list(ctx context.Context, q ListArtworksQuery, statuses []catalog.ArtworkStatus) (*ArtworkPage, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	// only the public view is shared between callers
	cacheable := len(statuses) == 1 && statuses[0] == catalog.ArtworkStatusApproved
	var key string
	if cacheable {
		keyed := q
		keyed.Status = string(catalog.ArtworkStatusApproved)
		key = listCacheKey(keyed)
		if page, ok := s.cache.getList(ctx, key); ok {
			return page, nil
		}
	}

	artworks, total, err := s.artworks.FindAll(ctx, catalog.ArtworkFilter{
		ListOptions: shared.ListOptions{
			Page:  q.Page,
			Limit: q.Limit,
			Sort:  shared.ParseSort(q.Sort, defaultSort),
		},
		Statuses: statuses,
		ArtistID: q.ArtistID,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Tags:     q.Tags,
		Search:   q.Search,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.withArtists(ctx, artworks)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(items, total, q.Page, q.Limit)
	if cacheable {
		s.cache.setList(ctx, key, &page)
	}
	return &page, nil
}

func (s *ArtworkService) withArtists(ctx context.Context, artworks []*catalog.Artwork) ([]ArtworkResponse, error) {
	ids := make([]uuid.UUID, 0, len(artworks))
	seen := make(map[uuid.UUID]bool, len(artworks))
	for _, a := range artworks {
		if !seen[a.ArtistID] {
			seen[a.ArtistID] = true
			ids = append(ids, a.ArtistID)
		}
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

	items := make([]ArtworkResponse, len(artworks))
	for i, a := range artworks {
		items[i] = ToArtworkResponse(a, artists[a.ArtistID])
	}
	return items, nil
}

func (s *ArtworkService) find(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	artwork, err := s.artworks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		return nil, err
	}
	return artwork, nil
}

// findForUpdate loads and locks an artwork inside a transaction
func findForUpdate(ctx context.Context, repos appshared.TransactionalRepositories, id uuid.UUID) (*catalog.Artwork, error) {
	artwork, err := repos.Artworks().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errArtworkNotFound
		}
		return nil, err
	}
	return artwork, nil
}

// parseStatuses maps a status filter to statuses. Empty means any.
func parseStatuses(raw string) ([]catalog.ArtworkStatus, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	status := catalog.ArtworkStatus(raw)
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Status must be pending, approved or rejected")
	}
	return []catalog.ArtworkStatus{status}, nil
}

func normalizeQuery(q ListArtworksQuery) (ListArtworksQuery, error) {
	opts := shared.ListOptions{Page: q.Page, Limit: q.Limit}.Normalize(shared.DefaultPageSize)
	q.Page, q.Limit = opts.Page, opts.Limit
	q.Sort = strings.TrimSpace(q.Sort)
	if q.Sort == "" {
		q.Sort = "-createdAt"
	}
	q.Search = strings.TrimSpace(q.Search)

	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		return q, shared.NewDomainError("INVALID_PRICE", "Minimum price cannot be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return q, shared.NewDomainError("INVALID_PRICE", "Minimum price cannot exceed maximum price")
	}

	tags := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	q.Tags = nil
	if len(tags) > 0 {
		q.Tags = tags
	}
	return q, nil
}
