package handler

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30" example:"mona_paints"`
	Email    string `json:"email" binding:"required,email" example:"mona@example.com"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"S3cure!pass"`
	Role     string `json:"role" binding:"omitempty,oneof=artist buyer" example:"artist"`
}

// VerifyEmailRequest carries the one time code sent by email
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"mona@example.com"`
	OTP   string `json:"otp" binding:"required,len=6,numeric" example:"123456"`
}

// EmailRequest carries a single email address
type EmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"mona@example.com"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"mona@example.com"`
	Password string `json:"password" binding:"required" example:"S3cure!pass"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ResetPasswordRequest represents the request body for a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=128"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=128"`
}
