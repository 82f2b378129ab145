package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE users;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "created_at"},
		{"api field maps to column", "price", "price"},
		{"camel case maps to snake case", "soldAt", "sold_at"},
		{"column names are not accepted directly", "sold_at", "created_at"},
		{"unknown field returns default", "password_hash", "created_at"},
		{"injection attempt returns default", "price; DROP TABLE artworks", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, ArtworkSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "price ASC, id ASC",
		OrderClause(shared.Sort{Field: "price", Direction: shared.SortAsc}, ArtworkSortFields, "created_at"))
	assert.Equal(t, "transacted_at DESC, id ASC",
		OrderClause(shared.Sort{Field: "timestamp", Direction: shared.SortDesc}, TransactionSortFields, "created_at"))
	assert.Equal(t, "created_at DESC, id ASC",
		OrderClause(shared.Sort{}, UserSortFields, "created_at"))
}
