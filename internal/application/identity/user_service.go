package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// UpdateProfileInput contains the editable profile fields
type UpdateProfileInput struct {
	Bio         string
	Website     string
	SocialLinks SocialLinks
}

// UserService handles profiles, block lists and presence
type UserService struct {
	users  identity.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// GetProfile returns the public profile of a user
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*PublicProfile, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := ToPublicProfile(user)
	return &profile, nil
}

// UpdateProfile replaces the caller's public profile
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(identity.Profile{
		Bio:     input.Bio,
		Website: input.Website,
		SocialLinks: identity.SocialLinks{
			Facebook:  input.SocialLinks.Facebook,
			Twitter:   input.SocialLinks.Twitter,
			Instagram: input.SocialLinks.Instagram,
		},
	}); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// Block stops target from messaging the caller
func (s *UserService) Block(ctx context.Context, id, target uuid.UUID) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.find(ctx, target); err != nil {
		return err
	}
	if user.IsBlocked(target) {
		return nil
	}
	if err := user.Block(target); err != nil {
		return err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("User blocked",
		zap.String("user_id", id.String()),
		zap.String("blocked_user_id", target.String()))
	return nil
}

// Unblock removes target from the caller's block list
func (s *UserService) Unblock(ctx context.Context, id, target uuid.UUID) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsBlocked(target) {
		return nil
	}
	user.Unblock(target)
	return s.users.Update(ctx, user)
}

// ListBlocked returns the users the caller has blocked
func (s *UserService) ListBlocked(ctx context.Context, id uuid.UUID) ([]PublicProfile, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(user.BlockedUsers) == 0 {
		return []PublicProfile{}, nil
	}
	blocked, err := s.users.FindByIDs(ctx, user.BlockedUsers)
	if err != nil {
		return nil, err
	}
	return toPublicProfiles(blocked), nil
}

// OnlineUsers lists connected users, optionally of one role
func (s *UserService) OnlineUsers(ctx context.Context, role *identity.Role) ([]PublicProfile, error) {
	if role != nil && !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be artist, buyer or admin")
	}
	users, err := s.users.FindOnline(ctx, role)
	if err != nil {
		return nil, err
	}
	return toPublicProfiles(users), nil
}

// SetPresence records a socket connect or disconnect
func (s *UserService) SetPresence(ctx context.Context, id uuid.UUID, online bool) error {
	return s.users.SetPresence(ctx, id, online, s.now())
}

func (s *UserService) find(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "User not found")
		}
		return nil, err
	}
	return user, nil
}

func toPublicProfiles(users []*identity.User) []PublicProfile {
	out := make([]PublicProfile, len(users))
	for i, u := range users {
		out[i] = ToPublicProfile(u)
	}
	return out
}
