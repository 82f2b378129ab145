package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// Update updates an existing user, including its blocked list
	Update(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByIDs returns the users with the given IDs, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)

	// FindByEmail finds a user by (lowercased) email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByResetTokenHash finds the user holding an unexpired reset token
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*User, error)

	// FindAll returns users matching the filter with pagination
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)

	// FindOnline returns online users, optionally restricted to a role
	FindOnline(ctx context.Context, role *Role) ([]*User, error)

	// ExistsByEmailOrUsername checks for an existing account with either value
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	// SetPresence updates online flag and last seen without loading the aggregate
	SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error

	// RecordMessage bumps the message counters of both parties in place
	RecordMessage(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) error

	// MarkStaleOffline flips users not seen since before to offline
	MarkStaleOffline(ctx context.Context, before time.Time) (int64, error)

	// Stats returns aggregate user counts
	Stats(ctx context.Context, since time.Time) (*UserStats, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.ListOptions

	// Search keyword for username or email (case-insensitive)
	Search string

	// Filter by role
	Role *Role

	// Filter by verification state
	IsVerified *bool
}

// UserStats holds platform user counts
type UserStats struct {
	Total       int64          `json:"totalUsers"`
	ByRole      map[Role]int64 `json:"byRole"`
	Verified    int64          `json:"verifiedUsers"`
	Online      int64          `json:"onlineUsers"`
	NewSince    int64          `json:"newUsers"`
	SinceWindow time.Time      `json:"since"`
}
