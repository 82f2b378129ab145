// Package messaging delivers direct messages between artists and buyers.
package messaging

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// Realtime frame types
const (
	FrameMessageNew  = "message:new"
	FrameMessageRead = "message:read"
)

// DefaultMessagePageSize is the page size of a conversation
const DefaultMessagePageSize = 50

var (
	errUserNotFound = shared.NewDomainError("NOT_FOUND", "User not found")
	errBlocked      = shared.NewDomainError("USER_BLOCKED", "You cannot message this user")
)

// Realtime pushes frames to the sockets of a connected user
type Realtime interface {
	SendToUser(userID uuid.UUID, frameType string, payload any)
}

type nopRealtime struct{}

func (nopRealtime) SendToUser(uuid.UUID, string, any) {}

// Service handles direct messages
type Service struct {
	messages messaging.MessageRepository
	users    identity.UserRepository
	realtime Realtime
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new messaging Service. realtime may be nil.
func NewService(messages messaging.MessageRepository, users identity.UserRepository, realtime Realtime, logger *zap.Logger) *Service {
	if realtime == nil {
		realtime = nopRealtime{}
	}
	return &Service{
		messages: messages,
		users:    users,
		realtime: realtime,
		logger:   logger,
		now:      time.Now,
	}
}

// Send stores a message and pushes it to the receiver
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*MessageResponse, error) {
	now := s.now()
	msg, err := messaging.NewMessage(senderID, input.ReceiverID, input.Content, now)
	if err != nil {
		return nil, err
	}

	sender, receiver, err := s.checkConversation(ctx, senderID, input.ReceiverID)
	if err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.users.RecordMessage(ctx, sender.ID, receiver.ID, now); err != nil {
		s.logger.Warn("Failed to update message stats",
			zap.String("sender_id", sender.ID.String()),
			zap.String("receiver_id", receiver.ID.String()),
			zap.Error(err))
	}

	resp := ToMessageResponse(msg)
	s.realtime.SendToUser(receiver.ID, FrameMessageNew, resp)
	s.logger.Debug("Message sent",
		zap.String("conversation_id", msg.ConversationID),
		zap.String("sender_id", senderID.String()))
	return &resp, nil
}

// CanMessage reports whether senderID may reach receiverID. Realtime
// frames such as typing indicators go through the same rules as messages.
func (s *Service) CanMessage(ctx context.Context, senderID, receiverID uuid.UUID) error {
	if senderID == receiverID {
		return shared.NewDomainError("CANNOT_MESSAGE_SELF", "You cannot send a message to yourself")
	}
	_, _, err := s.checkConversation(ctx, senderID, receiverID)
	return err
}

func (s *Service) checkConversation(ctx context.Context, senderID, receiverID uuid.UUID) (*identity.User, *identity.User, error) {
	sender, err := s.find(ctx, senderID)
	if err != nil {
		return nil, nil, err
	}
	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NewDomainError("NOT_FOUND", "Recipient not found")
		}
		return nil, nil, err
	}

	if receiver.IsBlocked(senderID) {
		return nil, nil, errBlocked
	}
	if sender.IsBlocked(receiver.ID) {
		return nil, nil, shared.NewDomainError("USER_BLOCKED", "You have blocked this user")
	}
	if !canMessage(sender.Role, receiver.Role) {
		return nil, nil, shared.NewDomainError("FORBIDDEN", "Artists and buyers can only message each other")
	}
	return sender, receiver, nil
}

// Conversations lists the conversations of a user with the latest message
// and the unread count of each
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationResponse, error) {
	convs, err := s.messages.Conversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []ConversationResponse{}, nil
	}

	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.OtherUserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*identity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp := ConversationResponse{
			ConversationID: c.ConversationID,
			UnreadCount:    c.UnreadCount,
		}
		if u, ok := byID[c.OtherUserID]; ok {
			p := identityapp.ToPublicProfile(u)
			resp.OtherUser = &p
		}
		if c.LastMessage != nil {
			m := ToMessageResponse(c.LastMessage)
			resp.LastMessage = &m
		}
		out = append(out, resp)
	}
	return out, nil
}

// Messages returns a page of the conversation between userID and otherID.
// Pages count back from the newest message; items are oldest first.
func (s *Service) Messages(ctx context.Context, userID, otherID uuid.UUID, page, limit int) (*MessagePage, error) {
	if _, err := s.find(ctx, otherID); err != nil {
		return nil, err
	}
	opts := shared.ListOptions{
		Page:  page,
		Limit: limit,
		Sort:  shared.Sort{Field: "timestamp", Direction: shared.SortDesc},
	}.Normalize(DefaultMessagePageSize)

	msgs, total, err := s.messages.ListConversation(ctx, messaging.ConversationID(userID, otherID), opts)
	if err != nil {
		return nil, err
	}
	items := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		items[i] = ToMessageResponse(m)
	}
	slices.Reverse(items)
	result := shared.NewPaginated(items, total, opts.Page, opts.Limit)
	return &result, nil
}

// MarkRead marks the messages otherID sent to userID as read and notifies otherID
func (s *Service) MarkRead(ctx context.Context, userID, otherID uuid.UUID) (int64, error) {
	now := s.now()
	n, err := s.messages.MarkRead(ctx, otherID, userID, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.realtime.SendToUser(otherID, FrameMessageRead, ReadReceipt{
			ReaderID:       userID,
			ConversationID: messaging.ConversationID(userID, otherID),
			Count:          n,
			ReadAt:         now,
		})
	}
	return n, nil
}

// UnreadCount counts unread messages addressed to a user
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// canMessage allows artist to buyer conversations; admins reach everyone
func canMessage(from, to identity.Role) bool {
	if from == identity.RoleAdmin || to == identity.RoleAdmin {
		return true
	}
	return from != to
}
