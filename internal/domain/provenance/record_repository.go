package provenance

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository is the append-only store of traceability records.
// Records are never updated or deleted.
type RecordRepository interface {
	// Append stores a new record
	Append(ctx context.Context, record *Record) error

	// ListByArtwork returns the chain of an artwork, oldest first
	ListByArtwork(ctx context.Context, artworkID uuid.UUID) ([]*Record, error)

	// FindByHash finds a record by its transaction hash
	FindByHash(ctx context.Context, hash string) (*Record, error)

	// Latest returns the newest record of an artwork, or shared.ErrNotFound
	Latest(ctx context.Context, artworkID uuid.UUID) (*Record, error)
}
