package shared

import (
	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/identity"
)

// Viewer is the caller of a read operation. The zero value is an anonymous visitor.
type Viewer struct {
	UserID uuid.UUID
	Role   identity.Role
}

// IsAnonymous returns true when no user is logged in
func (v Viewer) IsAnonymous() bool {
	return v.UserID == uuid.Nil
}

// IsAdmin returns true for administrators
func (v Viewer) IsAdmin() bool {
	return v.Role == identity.RoleAdmin
}

// Is returns true if the viewer is the given user
func (v Viewer) Is(userID uuid.UUID) bool {
	return !v.IsAnonymous() && v.UserID == userID
}
