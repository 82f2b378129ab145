package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is the marketplace role of a user
type Role string

const (
	RoleArtist Role = "artist"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
)

// IsValid returns true if r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleArtist, RoleBuyer, RoleAdmin:
		return true
	}
	return false
}

const (
	// OTPTTL is how long a verification code stays valid
	OTPTTL = 10 * time.Minute
	// PasswordResetTTL is how long a password reset token stays valid
	PasswordResetTTL = 10 * time.Minute

	otpDigits = 6
)

// BcryptCost is the bcrypt cost used for password hashes.
// Tests lower it to bcrypt.MinCost.
var BcryptCost = 12

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)
	emailRegex    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// SocialLinks holds the public social profile links
type SocialLinks struct {
	Facebook  string
	Twitter   string
	Instagram string
}

// Profile is the public profile of a user
type Profile struct {
	Bio         string
	Website     string
	SocialLinks SocialLinks
}

// MessageStats counts direct messages of a user
type MessageStats struct {
	TotalSent     int
	TotalReceived int
	LastMessageAt *time.Time
}

// User is the aggregate root for marketplace accounts (artists, buyers, admins)
type User struct {
	shared.BaseAggregateRoot
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Credits      int
	Profile      Profile

	IsVerified               bool
	VerificationOTPHash      string
	VerificationOTPExpiresAt *time.Time
	PasswordResetTokenHash   string
	PasswordResetExpiresAt   *time.Time

	StripeCustomerID string

	IsOnline     bool
	LastSeen     time.Time
	LastActive   time.Time
	BlockedUsers []uuid.UUID
	MessageStats MessageStats
}

// NewUser creates an unverified user and issues its first verification code.
// The plain code is returned so that the caller can hand it to the email job;
// only its hash is kept on the aggregate.
func NewUser(username, email, password string, role Role) (*User, string, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if role == "" {
		role = RoleBuyer
	}
	if !role.IsValid() {
		return nil, "", shared.NewDomainError("INVALID_ROLE", "Role must be artist, buyer or admin")
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, "", shared.WrapDomainError("HASH_FAILED", "Failed to hash password", err)
	}

	now := time.Now()
	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		LastSeen:          now,
		LastActive:        now,
		BlockedUsers:      make([]uuid.UUID, 0),
	}

	otp, err := user.newOTP(now)
	if err != nil {
		return nil, "", err
	}
	user.AddDomainEvent(NewUserRegisteredEvent(user, otp))
	return user, otp, nil
}

func (u *User) newOTP(now time.Time) (string, error) {
	otp, err := generateOTP()
	if err != nil {
		return "", shared.WrapDomainError("OTP_GENERATION_FAILED", "Failed to generate verification code", err)
	}
	expires := now.Add(OTPTTL)
	u.VerificationOTPHash = HashSecret(otp)
	u.VerificationOTPExpiresAt = &expires
	return otp, nil
}

// ReissueVerificationOTP replaces the pending verification code
func (u *User) ReissueVerificationOTP(now time.Time) (string, error) {
	if u.IsVerified {
		return "", shared.NewDomainError("ALREADY_VERIFIED", "Email is already verified")
	}
	otp, err := u.newOTP(now)
	if err != nil {
		return "", err
	}
	u.touch()
	u.AddDomainEvent(NewVerificationOTPReissuedEvent(u, otp))
	return otp, nil
}

// Verify checks the verification code and marks the email as verified
func (u *User) Verify(otp string, now time.Time) error {
	if u.IsVerified {
		return shared.NewDomainError("ALREADY_VERIFIED", "Email is already verified")
	}
	if u.VerificationOTPHash == "" || u.VerificationOTPExpiresAt == nil {
		return shared.NewDomainError("INVALID_OTP", "Invalid verification code")
	}
	if now.After(*u.VerificationOTPExpiresAt) {
		return shared.NewDomainError("OTP_EXPIRED", "Verification code has expired")
	}
	if !secretMatches(u.VerificationOTPHash, strings.TrimSpace(otp)) {
		return shared.NewDomainError("INVALID_OTP", "Invalid verification code")
	}

	u.IsVerified = true
	u.VerificationOTPHash = ""
	u.VerificationOTPExpiresAt = nil
	u.LastActive = now
	u.touch()
	u.AddDomainEvent(NewUserVerifiedEvent(u))
	return nil
}

// IssuePasswordReset creates a reset token valid for PasswordResetTTL.
// The plain token is returned for the reset email.
func (u *User) IssuePasswordReset(now time.Time) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", shared.WrapDomainError("TOKEN_GENERATION_FAILED", "Failed to generate reset token", err)
	}
	token := hex.EncodeToString(buf)
	expires := now.Add(PasswordResetTTL)
	u.PasswordResetTokenHash = HashSecret(token)
	u.PasswordResetExpiresAt = &expires
	u.touch()
	u.AddDomainEvent(NewPasswordResetRequestedEvent(u, token))
	return token, nil
}

// ResetPassword sets a new password if token matches the pending reset token
func (u *User) ResetPassword(token, newPassword string, now time.Time) error {
	if u.PasswordResetTokenHash == "" || u.PasswordResetExpiresAt == nil ||
		now.After(*u.PasswordResetExpiresAt) || !secretMatches(u.PasswordResetTokenHash, token) {
		return shared.NewDomainError("INVALID_RESET_TOKEN", "Password reset token is invalid or has expired")
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpiresAt = nil
	return nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the password after checking the current one
func (u *User) ChangePassword(currentPassword, newPassword string) error {
	if !u.VerifyPassword(currentPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword hashes and stores a new password
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.WrapDomainError("HASH_FAILED", "Failed to hash password", err)
	}
	u.PasswordHash = hash
	u.touch()
	return nil
}

// UpdateProfile replaces the public profile
func (u *User) UpdateProfile(profile Profile) error {
	profile.Bio = strings.TrimSpace(profile.Bio)
	profile.Website = strings.TrimSpace(profile.Website)
	if len(profile.Bio) > 1000 {
		return shared.NewDomainError("INVALID_PROFILE", "Bio cannot exceed 1000 characters")
	}
	u.Profile = profile
	u.touch()
	return nil
}

// Block adds target to the blocked list. Blocking twice is a no-op.
func (u *User) Block(target uuid.UUID) error {
	if target == u.ID {
		return shared.NewDomainError("CANNOT_BLOCK_SELF", "You cannot block yourself")
	}
	if u.IsBlocked(target) {
		return nil
	}
	u.BlockedUsers = append(u.BlockedUsers, target)
	u.touch()
	return nil
}

// Unblock removes target from the blocked list
func (u *User) Unblock(target uuid.UUID) {
	idx := slices.Index(u.BlockedUsers, target)
	if idx < 0 {
		return
	}
	u.BlockedUsers = slices.Delete(u.BlockedUsers, idx, idx+1)
	u.touch()
}

// IsBlocked returns true if u has blocked target
func (u *User) IsBlocked(target uuid.UUID) bool {
	return slices.Contains(u.BlockedUsers, target)
}

// SetOnline marks the user as connected
func (u *User) SetOnline(now time.Time) {
	u.IsOnline = true
	u.LastSeen = now
	u.LastActive = now
}

// SetOffline marks the user as disconnected
func (u *User) SetOffline(now time.Time) {
	u.IsOnline = false
	u.LastSeen = now
}

// RecordMessageSent bumps the sent counter
func (u *User) RecordMessageSent(now time.Time) {
	u.MessageStats.TotalSent++
	u.MessageStats.LastMessageAt = &now
	u.LastActive = now
}

// RecordMessageReceived bumps the received counter
func (u *User) RecordMessageReceived(now time.Time) {
	u.MessageStats.TotalReceived++
	u.MessageStats.LastMessageAt = &now
}

// AttachStripeCustomer stores the payment gateway customer id
func (u *User) AttachStripeCustomer(customerID string) {
	u.StripeCustomerID = customerID
	u.touch()
}

// IsArtist returns true for artists
func (u *User) IsArtist() bool {
	return u.Role == RoleArtist
}

// IsAdmin returns true for admins
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// HashSecret returns the hex SHA-256 of a one-time secret (OTP, reset token)
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func secretMatches(hash, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(HashSecret(secret))) == 1
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()+100000), nil
}

// Validation functions

func validateUsername(username string) error {
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Username is required")
	}
	if len(username) < 3 {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 3 characters")
	}
	if len(username) > 30 {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email is required")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Please use a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
