package persistence

import (
	"strings"

	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField maps an API sort field onto a column from the whitelist.
// Returns the defaultColumn if the field is empty or not allowed.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultColumn string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultColumn
	}
	if column, ok := allowedFields[trimmed]; ok {
		return column
	}
	return defaultColumn
}

// OrderClause builds a safe ORDER BY expression for a parsed sort.
// An id tiebreaker keeps pages stable.
func OrderClause(sort shared.Sort, allowedFields map[string]string, defaultColumn string) string {
	column := ValidateSortField(sort.Field, allowedFields, defaultColumn)
	return column + " " + ValidateSortOrder(string(sort.Direction)) + ", id ASC"
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"username":  "username",
	"email":     "email",
	"role":      "role",
	"lastSeen":  "last_seen",
}

// ArtworkSortFields contains allowed sort fields for artworks
var ArtworkSortFields = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"price":      "price",
	"title":      "title",
	"year":       "year",
	"approvedAt": "approved_at",
	"soldAt":     "sold_at",
}

// TransactionSortFields contains allowed sort fields for transactions
var TransactionSortFields = map[string]string{
	"timestamp":   "transacted_at",
	"createdAt":   "created_at",
	"amount":      "amount",
	"status":      "status",
	"type":        "type",
	"completedAt": "completed_at",
}
