package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
)

// MessageModel is the persistence model for direct messages.
type MessageModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_receiver_sender_read,priority:2"`
	ReceiverID     uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_receiver_sender_read,priority:1"`
	Content        string    `gorm:"type:text;not null"`
	ConversationID string    `gorm:"type:varchar(73);not null;index:idx_messages_conversation_time,priority:1"`
	Read           bool      `gorm:"column:is_read;not null;default:false;index:idx_messages_receiver_sender_read,priority:3"`
	ReadAt         *time.Time
	Timestamp      time.Time `gorm:"column:sent_at;not null;index:idx_messages_conversation_time,priority:2"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message.
func (m *MessageModel) ToDomain() *messaging.Message {
	return &messaging.Message{
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

// MessageModelFromDomain creates a new persistence model from a domain Message.
func MessageModelFromDomain(msg *messaging.Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		Content:        msg.Content,
		ConversationID: msg.ConversationID,
		Read:           msg.Read,
		ReadAt:         msg.ReadAt,
		Timestamp:      msg.Timestamp,
	}
}
