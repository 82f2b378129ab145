package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Username     string        `gorm:"type:varchar(30);not null;uniqueIndex"`
	Email        string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'buyer';index"`
	Credits      int           `gorm:"not null;default:0"`

	Bio       string `gorm:"type:text"`
	Website   string `gorm:"type:varchar(500)"`
	Facebook  string `gorm:"type:varchar(500)"`
	Twitter   string `gorm:"type:varchar(500)"`
	Instagram string `gorm:"type:varchar(500)"`

	IsVerified               bool       `gorm:"not null;default:false"`
	VerificationOTPHash      string     `gorm:"column:verification_otp_hash;type:varchar(64)"`
	VerificationOTPExpiresAt *time.Time `gorm:"column:verification_otp_expires_at"`
	PasswordResetTokenHash   string     `gorm:"type:varchar(64);index"`
	PasswordResetExpiresAt   *time.Time

	StripeCustomerID string `gorm:"type:varchar(255)"`

	IsOnline   bool      `gorm:"not null;default:false;index"`
	LastSeen   time.Time `gorm:"not null"`
	LastActive time.Time `gorm:"not null"`

	MessagesSent     int `gorm:"not null;default:0"`
	MessagesReceived int `gorm:"not null;default:0"`
	LastMessageAt    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
// Note: BlockedUsers must be loaded separately by the repository.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Username:          m.Username,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Credits:           m.Credits,
		Profile: identity.Profile{
			Bio:     m.Bio,
			Website: m.Website,
			SocialLinks: identity.SocialLinks{
				Facebook:  m.Facebook,
				Twitter:   m.Twitter,
				Instagram: m.Instagram,
			},
		},
		IsVerified:               m.IsVerified,
		VerificationOTPHash:      m.VerificationOTPHash,
		VerificationOTPExpiresAt: m.VerificationOTPExpiresAt,
		PasswordResetTokenHash:   m.PasswordResetTokenHash,
		PasswordResetExpiresAt:   m.PasswordResetExpiresAt,
		StripeCustomerID:         m.StripeCustomerID,
		IsOnline:                 m.IsOnline,
		LastSeen:                 m.LastSeen,
		LastActive:               m.LastActive,
		BlockedUsers:             make([]uuid.UUID, 0),
		MessageStats: identity.MessageStats{
			TotalSent:     m.MessagesSent,
			TotalReceived: m.MessagesReceived,
			LastMessageAt: m.LastMessageAt,
		},
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Username = u.Username
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Credits = u.Credits
	m.Bio = u.Profile.Bio
	m.Website = u.Profile.Website
	m.Facebook = u.Profile.SocialLinks.Facebook
	m.Twitter = u.Profile.SocialLinks.Twitter
	m.Instagram = u.Profile.SocialLinks.Instagram
	m.IsVerified = u.IsVerified
	m.VerificationOTPHash = u.VerificationOTPHash
	m.VerificationOTPExpiresAt = u.VerificationOTPExpiresAt
	m.PasswordResetTokenHash = u.PasswordResetTokenHash
	m.PasswordResetExpiresAt = u.PasswordResetExpiresAt
	m.StripeCustomerID = u.StripeCustomerID
	m.IsOnline = u.IsOnline
	m.LastSeen = u.LastSeen
	m.LastActive = u.LastActive
	m.MessagesSent = u.MessageStats.TotalSent
	m.MessagesReceived = u.MessageStats.TotalReceived
	m.LastMessageAt = u.MessageStats.LastMessageAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// UserBlockModel is one entry of a user's block list.
type UserBlockModel struct {
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BlockedUserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserBlockModel) TableName() string {
	return "user_blocks"
}
