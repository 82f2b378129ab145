package provenance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserSummary is the public identity of a record party
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// RecordResponse represents a traceability record in API responses
type RecordResponse struct {
	ID              uuid.UUID      `json:"id"`
	ArtworkID       uuid.UUID      `json:"artworkId"`
	From            UserSummary    `json:"fromUser"`
	To              UserSummary    `json:"toUser"`
	TransactionType string         `json:"transactionType"`
	TransactionHash string         `json:"transactionHash"`
	PreviousHash    string         `json:"previousHash,omitempty"`
	AdditionalData  map[string]any `json:"additionalData,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// HistoryResponse is the chain of an artwork, oldest first
type HistoryResponse struct {
	ArtworkID uuid.UUID        `json:"artworkId"`
	Title     string           `json:"title"`
	Records   []RecordResponse `json:"records"`
}

// VerifyResponse is the result of verifying an artwork chain
type VerifyResponse struct {
	ArtworkID uuid.UUID  `json:"artworkId"`
	Valid     bool       `json:"valid"`
	Records   int        `json:"records"`
	BrokenAt  *uuid.UUID `json:"brokenAt,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// CertificateData is everything printed on a certificate of authenticity
type CertificateData struct {
	ArtworkID   uuid.UUID
	Title       string
	Description string
	Medium      string
	Year        *int
	Dimensions  string
	ImageURL    string
	Price       decimal.Decimal
	Sold        bool
	Artist      UserSummary
	Owner       UserSummary
	Records     []RecordResponse
	ChainValid  bool
	IssuedAt    time.Time
}

// Certificate is a rendered certificate of authenticity
type Certificate struct {
	Filename string
	PDF      []byte
}
