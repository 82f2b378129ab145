// Package identity implements registration, authentication and profiles.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	errEmailNotVerified   = shared.NewDomainError("EMAIL_NOT_VERIFIED", "Please verify your email before logging in")
	errInvalidOTP         = shared.NewDomainError("INVALID_OTP", "Invalid verification code")
	errResetToken         = shared.NewDomainError("INVALID_RESET_TOKEN", "Password reset token is invalid or has expired")
)

// AuthService handles registration, email verification and token issuance
type AuthService struct {
	txScope    appshared.TransactionScope
	users      identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	txScope appshared.TransactionScope,
	users identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		txScope:    txScope,
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an unverified account. The verification code leaves
// the service only through the UserRegistered event.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserResponse, error) {
	if input.Role == identity.RoleAdmin {
		return nil, shared.NewDomainError("INVALID_ROLE", "Admin accounts cannot be registered")
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "User with this email or username already exists")
	}

	user, _, err := identity.NewUser(input.Username, input.Email, input.Password, input.Role)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, user, true); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	resp := ToUserResponse(user)
	return &resp, nil
}

// VerifyEmail confirms the address with the emailed code and logs the user in
func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidOTP
		}
		return nil, err
	}

	if err := user.Verify(otp, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, user, false); err != nil {
		return nil, err
	}

	s.logger.Info("Email verified", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// ResendVerification replaces the pending verification code
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "User not found")
		}
		return err
	}
	if _, err := user.ReissueVerificationOTP(s.now()); err != nil {
		return err
	}
	return s.save(ctx, user, false)
}

// Login checks the credentials of a verified user
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}
	if !user.IsVerified {
		return nil, errEmailNotVerified
	}

	if err := s.users.SetPresence(ctx, user.ID, user.IsOnline, s.now()); err != nil {
		s.logger.Warn("Failed to record login activity", zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// RefreshToken rotates a refresh token into a new pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		}
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
		}
		return nil, err
	}
	if !user.IsVerified {
		return nil, errEmailNotVerified
	}

	// the old refresh token is single use
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Logout revokes the given tokens until they expire
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	claims, err := s.jwtService.ValidateAccessToken(input.AccessToken)
	if err != nil {
		return shared.NewDomainError("TOKEN_INVALID", "Invalid access token")
	}
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		return err
	}

	if input.RefreshToken != "" {
		refresh, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
		if err == nil && refresh.UserID == claims.UserID {
			if err := s.blacklist.AddToBlacklist(ctx, refresh.ID, refresh.GetRemainingTTL()); err != nil {
				return err
			}
		}
	}

	s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// ForgotPassword issues a reset token. Unknown addresses succeed silently
// so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := user.IssuePasswordReset(s.now()); err != nil {
		return err
	}
	return s.save(ctx, user, false)
}

// ResetPassword sets a new password from an emailed reset token and
// revokes every session of the user
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	now := s.now()
	user, err := s.users.FindByResetTokenHash(ctx, identity.HashSecret(input.Token), now)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return errResetToken
		}
		return err
	}
	if err := user.ResetPassword(input.Token, input.NewPassword, now); err != nil {
		return err
	}
	if err := s.save(ctx, user, false); err != nil {
		return err
	}
	s.logger.Info("Password reset", zap.String("user_id", user.ID.String()))
	return s.revokeAll(ctx, user.ID)
}

// ChangePassword replaces the password of a logged in user and revokes
// every other session
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.save(ctx, user, false); err != nil {
		return err
	}
	return s.revokeAll(ctx, user.ID)
}

// Me returns the account of the caller
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ValidateAccessToken parses an access token and rejects revoked ones.
// Middleware and the websocket endpoint authenticate through it.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return shared.WrapDomainError("TOKEN_REVOKED", "Token has been revoked", auth.ErrTokenBlacklisted)
	}
	return nil
}

func (s *AuthService) revokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration())
}

// save persists the user and its pending events in one transaction
func (s *AuthService) save(ctx context.Context, user *identity.User, create bool) error {
	return s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		if create {
			err = repos.Users().Create(ctx, user)
		} else {
			err = repos.Users().Update(ctx, user)
		}
		if err != nil {
			return err
		}
		return repos.Events().Record(ctx, user.PullDomainEvents()...)
	})
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens", err)
	}
	return &AuthResult{
		TokenPair: TokenPair{
			AccessToken:           pair.AccessToken,
			RefreshToken:          pair.RefreshToken,
			AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
			TokenType:             pair.TokenType,
		},
		User: ToUserResponse(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
