package identity

import (
	"time"

	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserRegistered          = "UserRegistered"
	EventTypeUserVerified            = "UserVerified"
	EventTypeVerificationOTPReissued = "VerificationOTPReissued"
	EventTypePasswordResetRequested  = "PasswordResetRequested"
)

// UserRegisteredEvent is published when an account is created.
// It carries the plain verification code for the verification email job.
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User, otp string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID),
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
		OTP:             otp,
		ExpiresAt:       *user.VerificationOTPExpiresAt,
	}
}

// VerificationOTPReissuedEvent is published when a new verification code is requested
type VerificationOTPReissuedEvent struct {
	shared.BaseDomainEvent
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewVerificationOTPReissuedEvent creates a new VerificationOTPReissuedEvent
func NewVerificationOTPReissuedEvent(user *User, otp string) *VerificationOTPReissuedEvent {
	return &VerificationOTPReissuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVerificationOTPReissued, AggregateTypeUser, user.ID),
		Username:        user.Username,
		Email:           user.Email,
		OTP:             otp,
		ExpiresAt:       *user.VerificationOTPExpiresAt,
	}
}

// UserVerifiedEvent is published once the email address is confirmed
type UserVerifiedEvent struct {
	shared.BaseDomainEvent
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// NewUserVerifiedEvent creates a new UserVerifiedEvent
func NewUserVerifiedEvent(user *User) *UserVerifiedEvent {
	return &UserVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserVerified, AggregateTypeUser, user.ID),
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
	}
}

// PasswordResetRequestedEvent carries the plain reset token for the reset email job
type PasswordResetRequestedEvent struct {
	shared.BaseDomainEvent
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewPasswordResetRequestedEvent creates a new PasswordResetRequestedEvent
func NewPasswordResetRequestedEvent(user *User, token string) *PasswordResetRequestedEvent {
	return &PasswordResetRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePasswordResetRequested, AggregateTypeUser, user.ID),
		Username:        user.Username,
		Email:           user.Email,
		Token:           token,
		ExpiresAt:       *user.PasswordResetExpiresAt,
	}
}
