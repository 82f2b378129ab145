package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/identity"
)

// RegisterInput contains the input for account registration
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     identity.Role
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// LogoutInput carries the tokens to revoke. RefreshToken is optional.
type LogoutInput struct {
	AccessToken  string
	RefreshToken string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// ResetPasswordInput contains the input for a password reset
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// TokenPair is the access/refresh pair handed to clients
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	TokenType             string    `json:"tokenType"`
}

// AuthResult is returned by operations that log the user in
type AuthResult struct {
	TokenPair
	User UserResponse `json:"user"`
}

// SocialLinks is the JSON shape of identity.SocialLinks
type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// ProfileResponse is the public profile block
type ProfileResponse struct {
	Bio         string      `json:"bio"`
	Website     string      `json:"website"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

// MessageStatsResponse is the JSON shape of identity.MessageStats
type MessageStatsResponse struct {
	TotalSent     int        `json:"totalSent"`
	TotalReceived int        `json:"totalReceived"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// UserResponse is the account as seen by its owner or an admin.
// Password, OTP and reset token hashes are never exposed.
type UserResponse struct {
	ID           uuid.UUID            `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Role         identity.Role        `json:"role"`
	Credits      int                  `json:"credits"`
	Profile      ProfileResponse      `json:"profile"`
	IsVerified   bool                 `json:"isVerified"`
	IsOnline     bool                 `json:"isOnline"`
	LastSeen     time.Time            `json:"lastSeen"`
	LastActive   time.Time            `json:"lastActive"`
	MessageStats MessageStatsResponse `json:"messageStats"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// PublicProfile is what other users see
type PublicProfile struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Role      identity.Role   `json:"role"`
	Profile   ProfileResponse `json:"profile"`
	IsOnline  bool            `json:"isOnline"`
	LastSeen  time.Time       `json:"lastSeen"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ToUserResponse converts a domain user to the private view
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Credits:    u.Credits,
		Profile:    toProfileResponse(u.Profile),
		IsVerified: u.IsVerified,
		IsOnline:   u.IsOnline,
		LastSeen:   u.LastSeen,
		LastActive: u.LastActive,
		MessageStats: MessageStatsResponse{
			TotalSent:     u.MessageStats.TotalSent,
			TotalReceived: u.MessageStats.TotalReceived,
			LastMessageAt: u.MessageStats.LastMessageAt,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToPublicProfile converts a domain user to the public view
func ToPublicProfile(u *identity.User) PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Profile:   toProfileResponse(u.Profile),
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponse(p identity.Profile) ProfileResponse {
	return ProfileResponse{
		Bio:     p.Bio,
		Website: p.Website,
		SocialLinks: SocialLinks{
			Facebook:  p.SocialLinks.Facebook,
			Twitter:   p.SocialLinks.Twitter,
			Instagram: p.SocialLinks.Instagram,
		},
	}
}
