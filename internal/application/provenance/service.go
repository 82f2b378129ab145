// Package provenance exposes the traceability chain of artworks.
package provenance

import (
	"context"
	"errors"
	"fmt"
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

// CertificateRenderer turns certificate data into a PDF document
type CertificateRenderer interface {
	RenderCertificate(ctx context.Context, data *CertificateData) ([]byte, error)
}

// Service reads and verifies traceability records
type Service struct {
	records  provenance.RecordRepository
	artworks catalog.ArtworkRepository
	users    identity.UserRepository
	renderer CertificateRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new provenance Service. renderer may be nil, in which
// case certificates are unavailable.
func NewService(
	records provenance.RecordRepository,
	artworks catalog.ArtworkRepository,
	users identity.UserRepository,
	renderer CertificateRenderer,
	logger *zap.Logger,
) *Service {
	return &Service{
		records:  records,
		artworks: artworks,
		users:    users,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// History returns the chain of an artwork, oldest first
func (s *Service) History(ctx context.Context, viewer appshared.Viewer, artworkID uuid.UUID) (*HistoryResponse, error) {
	artwork, err := s.visibleArtwork(ctx, viewer, artworkID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	responses, err := s.toResponses(ctx, records)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{
		ArtworkID: artwork.ID,
		Title:     artwork.Title,
		Records:   responses,
	}, nil
}

// Verify recomputes the hash chain of an artwork
func (s *Service) Verify(ctx context.Context, viewer appshared.Viewer, artworkID uuid.UUID) (*VerifyResponse, error) {
	if _, err := s.visibleArtwork(ctx, viewer, artworkID); err != nil {
		return nil, err
	}
	records, err := s.records.ListByArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}

	result := provenance.VerifyChain(records)
	if !result.Valid {
		s.logger.Warn("Traceability chain verification failed",
			zap.String("artwork_id", artworkID.String()),
			zap.String("reason", result.Reason))
	}
	return &VerifyResponse{
		ArtworkID: artworkID,
		Valid:     result.Valid,
		Records:   result.Records,
		BrokenAt:  result.BrokenAt,
		Reason:    result.Reason,
	}, nil
}

// Lookup finds a record by its transaction hash
func (s *Service) Lookup(ctx context.Context, viewer appshared.Viewer, hash string) (*RecordResponse, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) != 64 {
		return nil, shared.NewDomainError("INVALID_HASH", "Transaction hash must be 64 hex characters")
	}
	record, err := s.records.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleArtwork(ctx, viewer, record.ArtworkID); err != nil {
		return nil, err
	}
	responses, err := s.toResponses(ctx, []*provenance.Record{record})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// Certificate renders a certificate of authenticity for an approved artwork
func (s *Service) Certificate(ctx context.Context, viewer appshared.Viewer, artworkID uuid.UUID) (*Certificate, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError("CERTIFICATES_UNAVAILABLE", "Certificate rendering is not configured")
	}
	artwork, err := s.visibleArtwork(ctx, viewer, artworkID)
	if err != nil {
		return nil, err
	}
	if !artwork.IsPublic() {
		return nil, shared.NewDomainError("ARTWORK_NOT_APPROVED", "Certificates are issued for approved artworks only")
	}

	records, err := s.records.ListByArtwork(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	responses, err := s.toResponses(ctx, records)
	if err != nil {
		return nil, err
	}
	parties, err := s.usernames(ctx, []uuid.UUID{artwork.ArtistID, artwork.CurrentOwnerID})
	if err != nil {
		return nil, err
	}

	data := &CertificateData{
		ArtworkID:   artwork.ID,
		Title:       artwork.Title,
		Description: artwork.Description,
		Medium:      artwork.Medium,
		Year:        artwork.Year,
		Dimensions:  formatDimensions(artwork.Dimensions),
		ImageURL:    artwork.PrimaryImage(),
		Price:       artwork.Price,
		Sold:        artwork.IsSold(),
		Artist:      UserSummary{ID: artwork.ArtistID, Username: parties[artwork.ArtistID]},
		Owner:       UserSummary{ID: artwork.CurrentOwnerID, Username: parties[artwork.CurrentOwnerID]},
		Records:     responses,
		ChainValid:  provenance.VerifyChain(records).Valid,
		IssuedAt:    s.now().UTC(),
	}

	pdf, err := s.renderer.RenderCertificate(ctx, data)
	if err != nil {
		s.logger.Error("Failed to render certificate",
			zap.String("artwork_id", artworkID.String()),
			zap.Error(err))
		return nil, shared.WrapDomainError("CERTIFICATE_FAILED", "Failed to render certificate", err)
	}

	return &Certificate{
		Filename: fmt.Sprintf("certificate-%s.pdf", artwork.ID),
		PDF:      pdf,
	}, nil
}

// visibleArtwork loads an artwork; unapproved artworks are visible to their
// artist and to admins only
func (s *Service) visibleArtwork(ctx context.Context, viewer appshared.Viewer, artworkID uuid.UUID) (*catalog.Artwork, error) {
	artwork, err := s.artworks.FindByID(ctx, artworkID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Artwork not found")
		}
		return nil, err
	}
	if !artwork.IsPublic() && !viewer.IsAdmin() && !viewer.Is(artwork.ArtistID) {
		return nil, shared.NewDomainError("NOT_FOUND", "Artwork not found")
	}
	return artwork, nil
}

func (s *Service) toResponses(ctx context.Context, records []*provenance.Record) ([]RecordResponse, error) {
	ids := make([]uuid.UUID, 0, len(records)*2)
	for _, r := range records {
		ids = append(ids, r.FromUserID, r.ToUserID)
	}
	names, err := s.usernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RecordResponse, len(records))
	for i, r := range records {
		out[i] = RecordResponse{
			ID:              r.ID,
			ArtworkID:       r.ArtworkID,
			From:            UserSummary{ID: r.FromUserID, Username: names[r.FromUserID]},
			To:              UserSummary{ID: r.ToUserID, Username: names[r.ToUserID]},
			TransactionType: string(r.TransactionType),
			TransactionHash: r.TransactionHash,
			PreviousHash:    r.PreviousHash,
			AdditionalData:  r.AdditionalData,
			Timestamp:       r.CreatedAt,
		}
	}
	return out, nil
}

// usernames resolves user ids; deleted users resolve to an empty name
func (s *Service) usernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	names := make(map[uuid.UUID]string, len(unique))
	if len(unique) == 0 {
		return names, nil
	}
	users, err := s.users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

func formatDimensions(d *catalog.Dimensions) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%g × %g %s", d.Width, d.Height, d.Unit)
}
