package provenance

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// TransactionType is the kind of ownership event recorded
type TransactionType string

const (
	TransactionTypeCreated     TransactionType = "created"
	TransactionTypeSold        TransactionType = "sold"
	TransactionTypeTransferred TransactionType = "transferred"
)

// IsValid returns true if t is a known transaction type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCreated, TransactionTypeSold, TransactionTypeTransferred:
		return true
	}
	return false
}

// Record is an append-only traceability entry for an artwork.
// Records of one artwork form a hash chain through PreviousHash.
type Record struct {
	ID              uuid.UUID
	ArtworkID       uuid.UUID
	FromUserID      uuid.UUID
	ToUserID        uuid.UUID
	TransactionType TransactionType
	TransactionHash string
	PreviousHash    string
	Nonce           string
	AdditionalData  map[string]any
	CreatedAt       time.Time
}

// NewRecord creates the next record of an artwork chain. previous is nil for
// the first record.
func NewRecord(artworkID, from, to uuid.UUID, txType TransactionType, previous *Record, data map[string]any) (*Record, error) {
	if artworkID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ARTWORK", "Artwork is required")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_TRANSACTION_TYPE", "Unknown transaction type %q", txType)
	}
	if previous != nil && previous.ArtworkID != artworkID {
		return nil, shared.NewDomainError("INVALID_CHAIN", "Previous record belongs to another artwork")
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, shared.WrapDomainError("NONCE_FAILED", "Failed to generate record nonce", err)
	}

	rec := &Record{
		ID:              uuid.New(),
		ArtworkID:       artworkID,
		FromUserID:      from,
		ToUserID:        to,
		TransactionType: txType,
		Nonce:           hex.EncodeToString(nonce),
		AdditionalData:  data,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
	if previous != nil {
		rec.PreviousHash = previous.TransactionHash
	}
	rec.TransactionHash = rec.ComputeHash()
	return rec, nil
}

// ComputeHash returns the hex SHA-256 over the record's chained fields
func (r *Record) ComputeHash() string {
	parts := []string{
		r.ArtworkID.String(),
		r.FromUserID.String(),
		r.ToUserID.String(),
		string(r.TransactionType),
		strconv.FormatInt(r.CreatedAt.UnixMicro(), 10),
		r.PreviousHash,
		r.Nonce,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// VerifyResult is the outcome of checking an artwork chain
type VerifyResult struct {
	Valid    bool       `json:"valid"`
	Records  int        `json:"records"`
	BrokenAt *uuid.UUID `json:"brokenAt,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// VerifyChain checks hashes and links of chronologically ordered records
func VerifyChain(records []*Record) VerifyResult {
	result := VerifyResult{Valid: true, Records: len(records)}
	prevHash := ""
	for i, r := range records {
		broken := func(reason string) VerifyResult {
			id := r.ID
			result.Valid = false
			result.BrokenAt = &id
			result.Reason = reason
			return result
		}
		if i == 0 && r.TransactionType != TransactionTypeCreated {
			return broken("chain does not start with a created record")
		}
		if r.PreviousHash != prevHash {
			return broken("previous hash does not match")
		}
		if r.ComputeHash() != r.TransactionHash {
			return broken("transaction hash does not match record contents")
		}
		prevHash = r.TransactionHash
	}
	return result
}
