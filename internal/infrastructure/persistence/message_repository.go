package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMessageRepository implements messaging.MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create stores a new message
func (r *GormMessageRepository) Create(ctx context.Context, m *messaging.Message) error {
	return r.db.WithContext(ctx).Create(models.MessageModelFromDomain(m)).Error
}

// ListConversation returns a page of a conversation, newest first
func (r *GormMessageRepository) ListConversation(ctx context.Context, conversationID string, opts shared.ListOptions) ([]*messaging.Message, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("conversation_id = ?", conversationID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	opts = opts.Normalize(50)
	var rows []*models.MessageModel
	if err := query.
		Order("sent_at DESC, id DESC").
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainMessages(rows), total, nil
}

// Conversations returns the latest message and unread count of every conversation of a user,
// most recent conversation first
func (r *GormMessageRepository) Conversations(ctx context.Context, userID uuid.UUID) ([]messaging.Conversation, error) {
	latest := r.db.
		Model(&models.MessageModel{}).
		Select("conversation_id, MAX(sent_at) AS last_at").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("conversation_id")

	var rows []*models.MessageModel
	if err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*").
		Joins("JOIN (?) AS latest ON m.conversation_id = latest.conversation_id AND m.sent_at = latest.last_at", latest).
		Order("m.sent_at DESC, m.id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	var unread []struct {
		ConversationID string
		Count          int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("conversation_id").
		Scan(&unread).Error; err != nil {
		return nil, err
	}
	unreadBy := make(map[string]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.ConversationID] = u.Count
	}

	conversations := make([]messaging.Conversation, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.ConversationID] {
			continue
		}
		seen[row.ConversationID] = true
		other := row.SenderID
		if other == userID {
			other = row.ReceiverID
		}
		conversations = append(conversations, messaging.Conversation{
			ConversationID: row.ConversationID,
			OtherUserID:    other,
			LastMessage:    row.ToDomain(),
			UnreadCount:    unreadBy[row.ConversationID],
		})
	}
	return conversations, nil
}

// MarkRead marks unread messages from sender to receiver as read
func (r *GormMessageRepository) MarkRead(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

// UnreadCount counts unread messages addressed to a user
func (r *GormMessageRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func toDomainMessages(rows []*models.MessageModel) []*messaging.Message {
	messages := make([]*messaging.Message, len(rows))
	for i, row := range rows {
		messages[i] = row.ToDomain()
	}
	return messages
}

// Ensure GormMessageRepository implements messaging.MessageRepository
var _ messaging.MessageRepository = (*GormMessageRepository)(nil)
