package messaging

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// MaxContentLength is the longest allowed message, in characters
const MaxContentLength = 2000

// Message is a direct message between two users
type Message struct {
	ID             uuid.UUID
	SenderID       uuid.UUID
	ReceiverID     uuid.UUID
	Content        string
	ConversationID string
	Read           bool
	ReadAt         *time.Time
	Timestamp      time.Time
}

// ConversationID returns the id shared by both directions of a conversation
func ConversationID(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	slices.Sort(ids)
	return strings.Join(ids, "_")
}

// NewMessage validates and creates a message
func NewMessage(senderID, receiverID uuid.UUID, content string, now time.Time) (*Message, error) {
	if senderID == receiverID {
		return nil, shared.NewDomainError("CANNOT_MESSAGE_SELF", "You cannot send a message to yourself")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.NewDomainError("INVALID_CONTENT", "Message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, shared.NewDomainErrorf("INVALID_CONTENT", "Message cannot exceed %d characters", MaxContentLength)
	}
	return &Message{
		ID:             uuid.New(),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		ConversationID: ConversationID(senderID, receiverID),
		Timestamp:      now,
	}, nil
}

// Conversation summarises one conversation for a user
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	OtherUserID    uuid.UUID `json:"otherUserId"`
	LastMessage    *Message  `json:"lastMessage"`
	UnreadCount    int64     `json:"unreadCount"`
}

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error

	// ListConversation returns a page of a conversation, newest first, with the total count
	ListConversation(ctx context.Context, conversationID string, opts shared.ListOptions) ([]*Message, int64, error)

	// Conversations returns the latest message and unread count of every conversation of a user
	Conversations(ctx context.Context, userID uuid.UUID) ([]Conversation, error)

	// MarkRead marks messages from sender to receiver as read and returns how many changed
	MarkRead(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error)

	// UnreadCount counts unread messages addressed to a user
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}
