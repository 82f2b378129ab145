package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
)

// ProvenanceRecordModel is the persistence model for traceability records.
// Rows are insert-only.
type ProvenanceRecordModel struct {
	ID              uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	ArtworkID       uuid.UUID                  `gorm:"type:uuid;not null;index:idx_provenance_artwork_created,priority:1"`
	FromUserID      uuid.UUID                  `gorm:"type:uuid;not null"`
	ToUserID        uuid.UUID                  `gorm:"type:uuid;not null"`
	TransactionType provenance.TransactionType `gorm:"type:varchar(20);not null"`
	TransactionHash string                     `gorm:"type:varchar(64);not null;uniqueIndex"`
	PreviousHash    string                     `gorm:"type:varchar(64)"`
	Nonce           string                     `gorm:"type:varchar(32);not null"`
	AdditionalData  map[string]any             `gorm:"type:jsonb;serializer:json"`
	CreatedAt       time.Time                  `gorm:"not null;index:idx_provenance_artwork_created,priority:2"`
}

// TableName returns the table name for GORM
func (ProvenanceRecordModel) TableName() string {
	return "traceability_records"
}

// ToDomain converts the persistence model to a domain Record.
func (m *ProvenanceRecordModel) ToDomain() *provenance.Record {
	return &provenance.Record{
		ID:              m.ID,
		ArtworkID:       m.ArtworkID,
		FromUserID:      m.FromUserID,
		ToUserID:        m.ToUserID,
		TransactionType: m.TransactionType,
		TransactionHash: m.TransactionHash,
		PreviousHash:    m.PreviousHash,
		Nonce:           m.Nonce,
		AdditionalData:  m.AdditionalData,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

// ProvenanceRecordModelFromDomain creates a new persistence model from a domain Record.
func ProvenanceRecordModelFromDomain(r *provenance.Record) *ProvenanceRecordModel {
	return &ProvenanceRecordModel{
		ID:              r.ID,
		ArtworkID:       r.ArtworkID,
		FromUserID:      r.FromUserID,
		ToUserID:        r.ToUserID,
		TransactionType: r.TransactionType,
		TransactionHash: r.TransactionHash,
		PreviousHash:    r.PreviousHash,
		Nonce:           r.Nonce,
		AdditionalData:  r.AdditionalData,
		CreatedAt:       r.CreatedAt,
	}
}
