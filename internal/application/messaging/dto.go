package messaging

import (
	"time"

	"github.com/google/uuid"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// SendMessageInput is a message to deliver
type SendMessageInput struct {
	ReceiverID uuid.UUID
	Content    string
}

// MessageResponse is the API view of a message
type MessageResponse struct {
	ID             uuid.UUID  `json:"id"`
	SenderID       uuid.UUID  `json:"senderId"`
	ReceiverID     uuid.UUID  `json:"receiverId"`
	Content        string     `json:"content"`
	ConversationID string     `json:"conversationId"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ConversationResponse summarises one conversation
type ConversationResponse struct {
	ConversationID string                     `json:"conversationId"`
	OtherUser      *identityapp.PublicProfile `json:"otherUser"`
	LastMessage    *MessageResponse           `json:"lastMessage"`
	UnreadCount    int64                      `json:"unreadCount"`
}

// MessagePage is a page of a conversation, oldest first
type MessagePage = shared.Paginated[MessageResponse]

// ReadReceipt is pushed to a sender when its messages were read
type ReadReceipt struct {
	ReaderID       uuid.UUID `json:"readerId"`
	ConversationID string    `json:"conversationId"`
	Count          int64     `json:"count"`
	ReadAt         time.Time `json:"readAt"`
}

// ToMessageResponse converts a domain message
func ToMessageResponse(m *messaging.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		ConversationID: m.ConversationID,
		Read:           m.Read,
		ReadAt:         m.ReadAt,
		Timestamp:      m.Timestamp,
	}
}
